package engine

import (
	"context"
	"encoding/json"

	"github.com/faesearch/fae/internal/jsonrpc"
)

// Peer-facing method names.
const (
	MethodPing         = "ping"
	MethodEcho         = "echo"
	MethodReverse      = "reverse"
	MethodSearchStatus = "search.status"
	MethodShutdown     = "shutdown"
	MethodUpdateQuery  = "updateQuery"
)

// Notification method names emitted by the engine.
const (
	MethodClearSearchResults = "clearSearchResults"
	MethodPushSearchResult   = "pushSearchResult"
)

func (e *Engine) registerMethods() {
	e.requestHandlers = map[string]RequestHandler{
		MethodPing:         e.handlePing,
		MethodEcho:         e.handleEcho,
		MethodReverse:      e.handleReverse,
		MethodSearchStatus: e.handleSearchStatus,
		MethodShutdown:     e.handleShutdown,
	}
	e.notificationHandlers = map[string]NotificationHandler{
		MethodUpdateQuery: e.handleUpdateQuery,
	}
}

func (e *Engine) handlePing(ctx context.Context, _ json.RawMessage) (any, *jsonrpc.Error) {
	return "pong", nil
}

// handleEcho returns params byte-for-byte; absent params echo as null.
func (e *Engine) handleEcho(ctx context.Context, params json.RawMessage) (any, *jsonrpc.Error) {
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

func (e *Engine) handleReverse(ctx context.Context, params json.RawMessage) (any, *jsonrpc.Error) {
	var text string
	if len(params) == 0 {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "parameter required")
	}
	if err := json.Unmarshal(params, &text); err != nil {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "parameter must be a string")
	}
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

// searchStatus is the search.status result payload.
type searchStatus struct {
	Status string `json:"status"`
	Query  string `json:"query,omitempty"`
}

func (e *Engine) handleSearchStatus(ctx context.Context, _ json.RawMessage) (any, *jsonrpc.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := searchStatus{Status: e.state.String()}
	if e.state == StateSearching {
		st.Query = e.query
	}
	return st, nil
}

// handleShutdown acknowledges with a null result; the dispatch loop tears the
// session down after the response is queued.
func (e *Engine) handleShutdown(ctx context.Context, _ json.RawMessage) (any, *jsonrpc.Error) {
	e.log.InfoContext(ctx, "shutdown requested by peer")
	return nil, nil
}

// updateQueryParams is the updateQuery notification payload.
type updateQueryParams struct {
	Query *string `json:"query"`
}

func (e *Engine) handleUpdateQuery(ctx context.Context, params json.RawMessage) *jsonrpc.Error {
	var p updateQueryParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "updateQuery params: %v", err)
		}
	}
	if p.Query == nil {
		return jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "updateQuery requires a 'query' parameter")
	}
	e.startSearch(ctx, *p.Query)
	return nil
}
