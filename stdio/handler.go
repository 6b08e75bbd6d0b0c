package stdio

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/faesearch/fae/internal/engine"
	"github.com/faesearch/fae/internal/logctx"
	"github.com/faesearch/fae/search"
)

// Handler is a single-connection stdio transport that reads framed JSON-RPC
// messages from an io.Reader and writes responses and push notifications to
// an io.Writer. By default it uses os.Stdin and os.Stdout.
//
// The handler is transport-and-dispatch only; search execution is delegated
// to the provided search.Searcher.
type Handler struct {
	searcher search.Searcher
	r        io.Reader
	w        io.Writer
	l        *slog.Logger

	eng *engine.Engine
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(searcher search.Searcher, opts ...Option) *Handler {
	h := &Handler{
		searcher: searcher,
		r:        os.Stdin,
		w:        os.Stdout,
		l:        slog.New(logctx.Handler{Handler: slog.NewTextHandler(os.Stderr, nil)}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.eng = engine.New(h.searcher, h.r, h.w, engine.WithLogger(h.l))
	return h
}

// Serve runs the event loop until the peer requests shutdown, EOF is reached
// on the reader, or the context is canceled. It is safe to call at most once
// per Handler. A nil error means a clean shutdown, including the EOF
// fail-safe; a framing corruption error means the session is unrecoverable
// and the process should exit non-zero.
func (h *Handler) Serve(ctx context.Context) error {
	return h.eng.Serve(ctx)
}

// Requery re-runs the active query, if any. Wire a file watcher to this to
// keep pushed results fresh as the searched tree changes.
func (h *Handler) Requery() {
	h.eng.Requery()
}
