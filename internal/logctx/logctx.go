// Package logctx enriches slog records with attributes carried in the
// context: the connection identity and the JSON-RPC message being handled.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps a slog.Handler and appends context-scoped groups.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if cd, ok := ctx.Value(connDataKey{}).(*ConnData); ok {
		r.AddAttrs(slog.Group("conn",
			slog.String("session_id", cd.SessionID),
		))
	}

	if msg, ok := ctx.Value(rpcMsgKey{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type rpcMsgKey struct{}

// RPCMessage identifies the inbound message currently being handled.
type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsgKey{}, msg)
}

type connDataKey struct{}

// ConnData identifies the peer connection.
type ConnData struct {
	SessionID string
}

func WithConnData(ctx context.Context, data *ConnData) context.Context {
	return context.WithValue(ctx, connDataKey{}, data)
}
