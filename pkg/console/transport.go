package console

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResourceID identifies a transport resource. Two drivers conflict when they
// are bound to the same ResourceID.
type ResourceID string

// NewResourceID returns a fresh random identity.
func NewResourceID() ResourceID {
	return ResourceID(uuid.NewString())
}

// Transport is the byte channel shared by the capability drivers of a board.
// Read is best effort: it returns an empty slice when nothing is pending.
type Transport interface {
	ID() ResourceID
	Write(p []byte) error
	Read() ([]byte, error)
}

var (
	// ErrClosed is returned by transports after Close.
	ErrClosed = errors.New("console: closed")
	// ErrReadTimeout is returned by ReadUntil when the marker never shows up.
	ErrReadTimeout = errors.New("console: read timeout")
)

// TransportError wraps a failure of the underlying channel.
type TransportError struct {
	Op       string
	Resource ResourceID
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("console: %s on %s: %v", e.Op, e.Resource, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// LineEnding terminates every command line sent to the board controller.
const LineEnding = "\r\n"

// WriteLine sends line followed by LineEnding.
func WriteLine(t Transport, line string) error {
	return t.Write([]byte(line + LineEnding))
}

// ReadUntil accumulates reads from t until marker appears in the received
// text or timeout elapses. The text read so far is returned in both cases.
func ReadUntil(t Transport, marker string, timeout, poll time.Duration) (string, error) {
	done := func(text string) bool { return strings.Contains(text, marker) }
	return ReadUntilFunc(t, done, fmt.Sprintf("%q", marker), timeout, poll)
}

// ReadUntilFunc is ReadUntil with a caller supplied completion check. done
// sees all text received so far; what names the awaited reply in the
// timeout error.
func ReadUntilFunc(t Transport, done func(text string) bool, what string, timeout, poll time.Duration) (string, error) {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	var sb strings.Builder
	for {
		chunk, err := t.Read()
		if err != nil {
			return sb.String(), err
		}
		sb.Write(chunk)
		if done(sb.String()) {
			return sb.String(), nil
		}
		if !time.Now().Before(deadline) {
			return sb.String(), fmt.Errorf("%w waiting for %s on %s", ErrReadTimeout, what, t.ID())
		}
		if len(chunk) == 0 {
			time.Sleep(poll)
		}
	}
}
