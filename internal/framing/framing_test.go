package framing

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payloads := []string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{}`,
		``,
		`{"params":"ünïcode → ✓"}`,
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, p := range payloads {
		if err := enc.Encode([]byte(p)); err != nil {
			t.Fatalf("encode %q: %v", p, err)
		}
	}

	dec := NewDecoder(&buf)
	for _, want := range payloads {
		got, err := dec.Next()
		if err != nil {
			t.Fatalf("decode %q: %v", want, err)
		}
		if string(got) != want {
			t.Errorf("round trip mismatch: got %q, want %q", got, want)
		}
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestEncodeWireFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode([]byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	want := "Content-Length: 7\r\n\r\n{\"a\":1}"
	if buf.String() != want {
		t.Errorf("wire format: got %q, want %q", buf.String(), want)
	}
}

func TestDecodeToleratesBlankLinesBetweenFrames(t *testing.T) {
	in := "\r\n\nContent-Length: 2\r\n\r\nhi"
	got, err := NewDecoder(strings.NewReader(in)).Next()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind ErrorKind
	}{
		{"missing header", "not-a-header\r\n\r\n{}", ErrorMalformedHeader},
		{"non-numeric length", "Content-Length: abc\r\n\r\n{}", ErrorBadLength},
		{"negative length", "Content-Length: -4\r\n\r\n{}", ErrorBadLength},
		{"truncated payload", "Content-Length: 10\r\n\r\n{}", ErrorTruncated},
		{"closed mid-header", "Content-Len", ErrorTruncated},
		{"missing separator", "Content-Length: 2\r\n", ErrorTruncated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder(strings.NewReader(tc.in)).Next()
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FrameError, got %v", err)
			}
			if fe.Kind != tc.kind {
				t.Errorf("kind: got %v, want %v", fe.Kind, tc.kind)
			}
			if !IsFrameError(err) {
				t.Error("IsFrameError returned false")
			}
		})
	}
}

func TestCleanEOF(t *testing.T) {
	if _, err := NewDecoder(strings.NewReader("")).Next(); err != io.EOF {
		t.Errorf("empty stream: got %v, want io.EOF", err)
	}
	if _, err := NewDecoder(strings.NewReader("\r\n\r\n")).Next(); err != io.EOF {
		t.Errorf("blank-only stream: got %v, want io.EOF", err)
	}
}
