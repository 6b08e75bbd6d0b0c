// Package stdio implements the single-connection JSON-RPC transport over
// stdin/stdout. It is intended for embedding the search engine as a child
// process of an editor or TUI frontend that pipes framed JSON.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 peer
//	Framing          : Content-Length header + JSON payload
//	Sessions         : Ephemeral; the process is the session
//	Fail-safe        : EOF on stdin drives an automatic clean shutdown
//
// Options allow supplying alternate io.Reader / io.Writer or a custom logger,
// which the tests use to run a handler over in-memory pipes.
//
// Example:
//
//	h := stdio.NewHandler(search.NewLiteralSearcher("."))
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package stdio
