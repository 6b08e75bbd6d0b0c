package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Classification failures. ErrParse means the payload was not valid JSON at
// all; ErrInvalidMessage means it was valid JSON whose shape matches none of
// request, notification, or response.
var (
	ErrParse          = errors.New("payload is not valid JSON")
	ErrInvalidMessage = errors.New("message matches no JSON-RPC shape")
)

// MessageType classifies a decoded message.
type MessageType int

const (
	TypeRequest MessageType = iota
	TypeNotification
	TypeResponse
)

func (t MessageType) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeNotification:
		return "notification"
	case TypeResponse:
		return "response"
	default:
		return "invalid"
	}
}

// AnyMessage is a decoded JSON-RPC envelope before classification has pinned
// it down to one of the concrete shapes.
type AnyMessage struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method,omitempty"`
	Params         json.RawMessage `json:"params,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// Request represents a JSON-RPC request (with an ID) or notification (no ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// Response represents a JSON-RPC response carrying exactly one of result or
// error.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// MarshalJSON keeps exactly one of result/error on the wire. A successful
// response with no result bytes is emitted as result null.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		type errResponse struct {
			JSONRPCVersion string     `json:"jsonrpc"`
			Error          *Error     `json:"error"`
			ID             *RequestID `json:"id,omitempty"`
		}
		return json.Marshal(&errResponse{JSONRPCVersion: r.JSONRPCVersion, Error: r.Error, ID: r.ID})
	}
	type okResponse struct {
		JSONRPCVersion string          `json:"jsonrpc"`
		Result         json.RawMessage `json:"result"`
		ID             *RequestID      `json:"id,omitempty"`
	}
	res := r.Result
	if len(res) == 0 {
		res = json.RawMessage("null")
	}
	return json.Marshal(&okResponse{JSONRPCVersion: r.JSONRPCVersion, Result: res, ID: r.ID})
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Errorf builds a JSON-RPC error value.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Decode parses a raw payload into an AnyMessage, enforcing JSON-RPC 2.0
// shape rules. It returns an error wrapping ErrParse for invalid JSON and
// ErrInvalidMessage for a well-formed document of the wrong shape.
func Decode(payload []byte) (*AnyMessage, error) {
	var m AnyMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if m.JSONRPCVersion != ProtocolVersion {
		return nil, fmt.Errorf("%w: jsonrpc version %q", ErrInvalidMessage, m.JSONRPCVersion)
	}
	if _, err := m.Classify(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Classify returns the message type per JSON-RPC 2.0 shape rules: a method
// without result/error is a request (with id) or notification (without); a
// result xor error without a method is a response. Everything else fails with
// ErrInvalidMessage.
func (m *AnyMessage) Classify() (MessageType, error) {
	hasMethod := m.Method != ""
	hasResult := len(m.Result) > 0
	hasError := m.Error != nil

	switch {
	case hasMethod && !hasResult && !hasError:
		if m.ID == nil {
			return TypeNotification, nil
		}
		return TypeRequest, nil
	case !hasMethod && hasResult != hasError:
		return TypeResponse, nil
	case hasMethod:
		return 0, fmt.Errorf("%w: method with result or error", ErrInvalidMessage)
	case hasResult && hasError:
		return 0, fmt.Errorf("%w: both result and error present", ErrInvalidMessage)
	default:
		return 0, fmt.Errorf("%w: no method, result, or error", ErrInvalidMessage)
	}
}

// AsRequest views the message as a Request. Valid for requests and
// notifications.
func (m *AnyMessage) AsRequest() *Request {
	return &Request{
		JSONRPCVersion: m.JSONRPCVersion,
		Method:         m.Method,
		Params:         m.Params,
		ID:             m.ID,
	}
}

// AsResponse views the message as a Response.
func (m *AnyMessage) AsResponse() *Response {
	return &Response{
		JSONRPCVersion: m.JSONRPCVersion,
		Result:         m.Result,
		Error:          m.Error,
		ID:             m.ID,
	}
}

// NewResultResponse builds a successful response for id.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{JSONRPCVersion: ProtocolVersion, Result: resultBytes, ID: id}, nil
}

// NewErrorResponse builds an error response for id.
func NewErrorResponse(id *RequestID, rpcErr *Error) *Response {
	return &Response{JSONRPCVersion: ProtocolVersion, Error: rpcErr, ID: id}
}

// NewNotification builds a notification message. Marshal failures are a
// programming error and panic.
func NewNotification(method string, params any) *Request {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			panic(fmt.Sprintf("marshal %s params: %v", method, err))
		}
		raw = b
	}
	return &Request{JSONRPCVersion: ProtocolVersion, Method: method, Params: raw}
}
