package engine

import (
	"context"
	"errors"

	"github.com/faesearch/fae/internal/jsonrpc"
	"github.com/faesearch/fae/search"
)

// startSearch cancels any in-flight search and launches a worker for query.
// Cancellation of the old worker is requested immediately, but the new worker
// rendezvouses with the old one's exit before emitting anything, so a stale
// pushSearchResult can never land after the new clearSearchResults.
func (e *Engine) startSearch(ctx context.Context, query string) {
	e.mu.Lock()
	if e.state == StateShuttingDown || e.state == StateTerminated {
		e.mu.Unlock()
		return
	}
	prevDone := e.searchDone
	if e.cancelSearch != nil {
		e.cancelSearch()
	}
	sctx, cancel := context.WithCancel(e.baseCtx)
	done := make(chan struct{})
	e.cancelSearch = cancel
	e.searchDone = done
	e.query = query
	e.state = StateSearching
	e.mu.Unlock()

	e.log.InfoContext(ctx, "starting search", "query", query)
	go e.runSearch(sctx, query, prevDone, done)
}

// runSearch is the search worker: wait out the previous worker, clear the
// peer's result view, then stream matches until completion or cancellation.
func (e *Engine) runSearch(ctx context.Context, query string, prevDone, done chan struct{}) {
	defer close(done)

	if prevDone != nil {
		<-prevDone
	}
	if ctx.Err() != nil {
		// Superseded before it ever emitted; leave the wire untouched.
		return
	}

	e.enqueue(jsonrpc.NewNotification(MethodClearSearchResults, nil))

	err := e.searcher.Search(ctx, query, func(r search.Result) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.enqueue(jsonrpc.NewNotification(MethodPushSearchResult, r)) {
			return ErrEngineClosed
		}
		return nil
	})

	e.mu.Lock()
	if e.searchDone == done && e.state == StateSearching {
		e.state = StateIdle
	}
	e.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrEngineClosed) {
		e.log.ErrorContext(ctx, "search failed", "query", query, "err", err)
	}
}

// Requery re-runs the last query, if any. The file watcher calls this when
// the searched tree changes so the peer's results stay fresh.
func (e *Engine) Requery() {
	e.mu.Lock()
	query := e.query
	base := e.baseCtx
	blocked := e.state == StateShuttingDown || e.state == StateTerminated
	e.mu.Unlock()
	if query == "" || base == nil || blocked {
		return
	}
	e.log.Info("re-running query after filesystem change", "query", query)
	e.startSearch(base, query)
}
