// Package engine implements the JSON-RPC message loop: one reader goroutine
// decoding frames, one writer goroutine owning the output stream, and a
// dispatcher executing method handlers. The reader doubles as the lifecycle
// monitor: end of input triggers the fail-safe shutdown.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/faesearch/fae/internal/framing"
	"github.com/faesearch/fae/internal/jsonrpc"
	"github.com/faesearch/fae/internal/logctx"
	"github.com/faesearch/fae/search"
)

// ErrEngineClosed indicates the engine has entered shutdown.
var ErrEngineClosed = errors.New("engine closed")

// RequestHandler executes one inbound request and returns a result or a
// JSON-RPC error.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, *jsonrpc.Error)

// NotificationHandler executes one inbound notification. Failures are logged
// by the dispatch loop; notifications have no reply channel.
type NotificationHandler func(ctx context.Context, params json.RawMessage) *jsonrpc.Error

// Engine drives a single peer connection.
type Engine struct {
	log       *slog.Logger
	searcher  search.Searcher
	sessionID string

	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler

	enc *framing.Encoder
	dec *framing.Decoder

	// Outbound frames funnel through this channel into the writer loop.
	outbound   chan any
	outMu      sync.RWMutex
	outClosed  bool
	writerDone chan struct{}

	calls *callTable

	shutdownOnce sync.Once
	down         chan struct{}

	mu           sync.Mutex
	state        State
	query        string
	cancelSearch context.CancelFunc
	searchDone   chan struct{}
	baseCtx      context.Context // set once Serve starts; guarded by mu
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New constructs an engine for one connection over r and w.
func New(searcher search.Searcher, r io.Reader, w io.Writer, opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		searcher:   searcher,
		sessionID:  uuid.NewString(),
		enc:        framing.NewEncoder(w),
		dec:        framing.NewDecoder(r),
		outbound:   make(chan any, 256),
		writerDone: make(chan struct{}),
		down:       make(chan struct{}),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.calls = newCallTable(e)
	e.registerMethods()
	return e
}

// Serve runs the connection until the peer requests shutdown, the input
// stream closes, or the context is canceled. A nil return means a clean
// shutdown (explicit request or EOF fail-safe); a *framing.FrameError return
// means the session died to stream corruption.
func (e *Engine) Serve(ctx context.Context) error {
	ctx = logctx.WithConnData(ctx, &logctx.ConnData{SessionID: e.sessionID})
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()
	e.log.InfoContext(ctx, "session started")

	go e.writeLoop()

	readErr := make(chan error, 1)
	go e.readLoop(ctx, readErr)

	var err error
	select {
	case err = <-readErr:
		if err == nil {
			// EOF fail-safe: the peer's transport closed.
			e.beginShutdown(ctx, "input stream closed")
		} else {
			e.log.ErrorContext(ctx, "session corrupted", "err", err)
			e.beginShutdown(ctx, "framing failure")
		}
	case <-e.down:
		// Shutdown was requested by the peer or the writer failed.
	case <-ctx.Done():
		e.beginShutdown(ctx, "context canceled")
	}

	// Already-queued frames flush before the writer exits.
	<-e.writerDone

	e.mu.Lock()
	e.state = StateTerminated
	e.mu.Unlock()
	e.log.InfoContext(ctx, "shutdown complete")
	return err
}

// readLoop decodes frames until the stream ends. It reports io.EOF as a nil
// error (the fail-safe path) and framing corruption as a *framing.FrameError.
func (e *Engine) readLoop(ctx context.Context, readErr chan<- error) {
	for {
		payload, err := e.dec.Next()
		if err != nil {
			if err == io.EOF {
				e.log.InfoContext(ctx, "input stream EOF, triggering automatic shutdown")
				readErr <- nil
			} else {
				readErr <- err
			}
			return
		}
		e.handlePayload(ctx, payload)
	}
}

// handlePayload decodes, classifies, and dispatches one frame.
func (e *Engine) handlePayload(ctx context.Context, payload []byte) {
	msg, err := jsonrpc.Decode(payload)
	if err != nil {
		switch {
		case errors.Is(err, jsonrpc.ErrParse):
			// No id is recoverable from a malformed document; drop.
			e.log.WarnContext(ctx, "dropping unparseable frame", "err", err)
		case errors.Is(err, jsonrpc.ErrInvalidMessage):
			id := recoverID(payload)
			if id != nil {
				e.enqueue(jsonrpc.NewErrorResponse(id, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidRequest, "invalid message: %v", err)))
			} else {
				e.log.WarnContext(ctx, "dropping invalid message", "err", err)
			}
		default:
			e.log.WarnContext(ctx, "dropping undecodable frame", "err", err)
		}
		return
	}

	kind, _ := msg.Classify()
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   kind.String(),
	})

	if e.isShuttingDown() {
		e.log.DebugContext(ctx, "dropping message received during shutdown")
		return
	}

	switch kind {
	case jsonrpc.TypeRequest:
		go e.handleRequest(ctx, msg.AsRequest())
	case jsonrpc.TypeNotification:
		// Notifications run inline so arrival order is dispatch order: a
		// later updateQuery must always supersede an earlier one, never the
		// reverse. Handlers only hand work to other goroutines, so the read
		// loop is not held up.
		e.handleNotification(ctx, msg.AsRequest())
	case jsonrpc.TypeResponse:
		e.calls.deliver(ctx, msg.AsResponse())
	}
}

func (e *Engine) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	handler, ok := e.requestHandlers[req.Method]
	if !ok {
		e.log.WarnContext(ctx, "method not found")
		e.enqueue(jsonrpc.NewErrorResponse(req.ID, jsonrpc.Errorf(jsonrpc.ErrorCodeMethodNotFound, "method %q not found", req.Method)))
		return
	}

	result, rpcErr := handler(ctx, req.Params)
	if rpcErr != nil {
		e.enqueue(jsonrpc.NewErrorResponse(req.ID, rpcErr))
		return
	}
	resp, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		e.log.ErrorContext(ctx, "marshal result", "err", err)
		e.enqueue(jsonrpc.NewErrorResponse(req.ID, jsonrpc.Errorf(jsonrpc.ErrorCodeInternalError, "marshal result: %v", err)))
		return
	}
	e.enqueue(resp)

	// The shutdown response is flushed by the writer drain that follows.
	if req.Method == MethodShutdown {
		e.beginShutdown(ctx, "shutdown requested")
	}
}

func (e *Engine) handleNotification(ctx context.Context, req *jsonrpc.Request) {
	handler, ok := e.notificationHandlers[req.Method]
	if !ok {
		e.log.WarnContext(ctx, "ignoring unknown notification")
		return
	}
	if rpcErr := handler(ctx, req.Params); rpcErr != nil {
		e.log.ErrorContext(ctx, "notification handler failed", "code", int(rpcErr.Code), "err", rpcErr.Message)
	}
}

// writeLoop is the single owner of the output stream. Every outbound frame,
// response or notification, is marshaled and written here.
func (e *Engine) writeLoop() {
	defer close(e.writerDone)
	for msg := range e.outbound {
		b, err := json.Marshal(msg)
		if err != nil {
			e.log.Error("marshal outbound message", "err", err)
			continue
		}
		if err := e.enc.Encode(b); err != nil {
			e.log.Error("output stream write failed", "err", err)
			go e.beginShutdown(context.Background(), "output stream write failed")
			for range e.outbound {
				// Discard; the stream is gone.
			}
			return
		}
	}
}

// enqueue hands a frame to the writer loop. It reports false once shutdown
// has closed the outbound channel.
func (e *Engine) enqueue(msg any) bool {
	e.outMu.RLock()
	defer e.outMu.RUnlock()
	if e.outClosed {
		return false
	}
	e.outbound <- msg
	return true
}

func (e *Engine) isShuttingDown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateShuttingDown || e.state == StateTerminated
}

// beginShutdown runs the single shutdown sequence: absorb the state machine
// into ShuttingDown, cancel any in-flight search, fail pending outbound
// calls, and close the outbound channel so the writer drains and exits.
func (e *Engine) beginShutdown(ctx context.Context, reason string) {
	e.shutdownOnce.Do(func() {
		e.log.InfoContext(ctx, "shutting down", "reason", reason)

		e.mu.Lock()
		e.state = StateShuttingDown
		if e.cancelSearch != nil {
			e.cancelSearch()
		}
		e.mu.Unlock()

		e.calls.close(ErrEngineClosed)

		e.outMu.Lock()
		e.outClosed = true
		close(e.outbound)
		e.outMu.Unlock()

		close(e.down)
	})
}

// recoverID extracts an id from a shape-invalid (but syntactically valid)
// JSON document so the error response can be correlated.
func recoverID(payload []byte) *jsonrpc.RequestID {
	var probe struct {
		ID *jsonrpc.RequestID `json:"id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil
	}
	return probe.ID
}
