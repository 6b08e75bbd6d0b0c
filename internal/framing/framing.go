// Package framing implements Content-Length delimited message framing over a
// byte stream. Each frame is a header line `Content-Length: <n>\r\n`, a blank
// line, and exactly n bytes of UTF-8 JSON payload.
package framing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

const headerPrefix = "Content-Length: "

// ErrorKind classifies framing failures.
type ErrorKind int

const (
	// ErrorMalformedHeader indicates the header line did not match the
	// expected Content-Length form.
	ErrorMalformedHeader ErrorKind = iota
	// ErrorBadLength indicates a non-numeric or negative length value.
	ErrorBadLength
	// ErrorTruncated indicates the stream closed mid-header or mid-payload.
	ErrorTruncated
)

// FrameError is a fatal framing failure. Once a stream is misaligned there is
// no way to resynchronize, so the session must be torn down.
type FrameError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFrameError reports whether err is (or wraps) a *FrameError.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// Decoder reads frames from a stream. Successive calls to Next form a lazy
// sequence of payloads; it is restartable in that each call picks up exactly
// where the previous frame ended.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r in a frame decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next reads one frame and returns its payload. It returns io.EOF when the
// stream ends cleanly at a frame boundary, and a *FrameError for any
// malformed or truncated frame.
func (d *Decoder) Next() ([]byte, error) {
	header, err := d.readHeaderLine()
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(header, headerPrefix) {
		return nil, &FrameError{Kind: ErrorMalformedHeader, Msg: fmt.Sprintf("expected Content-Length header, got %q", header)}
	}
	n, err := strconv.Atoi(strings.TrimPrefix(header, headerPrefix))
	if err != nil || n < 0 {
		return nil, &FrameError{Kind: ErrorBadLength, Msg: fmt.Sprintf("invalid Content-Length value in %q", header), Err: err}
	}

	// Separator line between header and payload.
	if _, err := d.r.ReadString('\n'); err != nil {
		return nil, &FrameError{Kind: ErrorTruncated, Msg: "stream closed before frame payload", Err: err}
	}

	payload := make([]byte, n)
	if got, err := io.ReadFull(d.r, payload); err != nil {
		return nil, &FrameError{Kind: ErrorTruncated, Msg: fmt.Sprintf("stream closed %d bytes into a %d byte payload", got, n), Err: err}
	}
	return payload, nil
}

// readHeaderLine returns the first non-blank line, trimmed of line endings.
// Blank lines between frames are tolerated.
func (d *Decoder) readHeaderLine() (string, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && strings.TrimRight(line, "\r\n") == "" {
				// Clean end of stream at a frame boundary.
				return "", io.EOF
			}
			return "", &FrameError{Kind: ErrorTruncated, Msg: "stream closed mid-header", Err: err}
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			return line, nil
		}
	}
}

// Encoder writes frames to a stream. Writes are serialized internally so that
// a header and its payload are always emitted atomically, but callers are
// still expected to funnel all traffic through a single writer loop.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder wraps w in a frame encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes payload as a single frame and flushes if the underlying
// writer supports it.
func (e *Encoder) Encode(payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var buf strings.Builder
	buf.Grow(len(headerPrefix) + 16 + len(payload))
	buf.WriteString(headerPrefix)
	buf.WriteString(strconv.Itoa(len(payload)))
	buf.WriteString("\r\n\r\n")
	buf.Write(payload)

	if _, err := io.WriteString(e.w, buf.String()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if f, ok := e.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush frame: %w", err)
		}
	}
	return nil
}
