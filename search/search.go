// Package search defines the search collaborator contract consumed by the
// JSON-RPC engine and ships a literal filesystem implementation of it.
package search

import "context"

// Result is one reported match.
type Result struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Content  string `json:"content"`
}

// EmitFunc receives one match in discovery order. A non-nil return aborts the
// search and is propagated out of Search.
type EmitFunc func(Result) error

// Searcher executes a query and streams matches through emit. Cancellation is
// cooperative via ctx: once the searcher observes ctx.Done it must not call
// emit again, and it returns ctx.Err(). A nil return means the search ran to
// completion.
type Searcher interface {
	Search(ctx context.Context, query string, emit EmitFunc) error
}
