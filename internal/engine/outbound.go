package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/faesearch/fae/internal/jsonrpc"
)

// callTable coordinates engine-initiated JSON-RPC requests: monotonic id
// allocation, pending-call registration, and response correlation. Incoming
// Response frames from the read loop land here.
type callTable struct {
	e *Engine

	mu      sync.Mutex
	pending map[string]chan *jsonrpc.Response
	closed  bool
	err     error

	nextID atomic.Uint64
}

func newCallTable(e *Engine) *callTable {
	return &callTable{e: e, pending: make(map[string]chan *jsonrpc.Response)}
}

// Call sends a request to the peer and blocks until its response arrives,
// the context ends, or the session closes.
func (c *callTable) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	id := jsonrpc.NewRequestID(int64(c.nextID.Add(1)))
	key := id.String()

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}

	ch := make(chan *jsonrpc.Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, c.err
	}
	c.pending[key] = ch
	c.mu.Unlock()

	req := &jsonrpc.Request{JSONRPCVersion: jsonrpc.ProtocolVersion, Method: method, Params: raw, ID: id}
	if !c.e.enqueue(req) {
		c.drop(key)
		return nil, ErrEngineClosed
	}

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, c.err
		}
		return resp, nil
	case <-ctx.Done():
		c.drop(key)
		return nil, ctx.Err()
	}
}

// deliver routes an incoming response to its waiting call. Unmatched
// responses are logged and dropped.
func (c *callTable) deliver(ctx context.Context, resp *jsonrpc.Response) {
	if resp.ID == nil {
		c.e.log.WarnContext(ctx, "dropping response without id")
		return
	}
	key := resp.ID.String()
	c.mu.Lock()
	ch, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()
	if !ok {
		c.e.log.WarnContext(ctx, "dropping response with unknown id", "id", key)
		return
	}
	ch <- resp
}

func (c *callTable) drop(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// close fails every pending call and refuses new ones.
func (c *callTable) close(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	for key, ch := range c.pending {
		delete(c.pending, key)
		close(ch)
	}
}

// Call issues an engine-initiated request to the peer.
func (e *Engine) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	return e.calls.Call(ctx, method, params)
}
