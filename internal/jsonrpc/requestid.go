package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// RequestID is a JSON-RPC ID, which may be a string or a number on the wire.
type RequestID struct {
	value any
}

// NewRequestID creates an ID from a string or integer value.
func NewRequestID[T string | int | int64 | uint64](value T) *RequestID {
	return &RequestID{value: value}
}

// String renders the ID for use as a correlation key.
func (id *RequestID) String() string {
	if id == nil || id.value == nil {
		return ""
	}
	switch v := id.value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MarshalJSON implements json.Marshaler.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler. Numbers are normalized to int64
// when integral.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if num == float64(int64(num)) {
			id.value = int64(num)
		} else {
			id.value = num
		}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		id.value = str
		return nil
	}

	return fmt.Errorf("JSON-RPC ID must be a string or number, got %s", string(data))
}
