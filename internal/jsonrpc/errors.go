package jsonrpc

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	// ErrorCodeParseError indicates invalid JSON was received.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeInvalidRequest indicates the message matched no valid shape.
	ErrorCodeInvalidRequest ErrorCode = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams ErrorCode = -32602
	// ErrorCodeInternalError indicates a failure inside a handler or the
	// search collaborator.
	ErrorCodeInternalError ErrorCode = -32603
)
