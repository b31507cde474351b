package console

import (
	"sync"
)

// WriteHook lets a SimConsole emulate the board. The returned reply (if any)
// is queued for the next Read; a non-nil error fails the write.
type WriteHook func(p []byte) (reply []byte, err error)

// SimConsole is an in-memory transport useful for unit tests and for running
// the CLI without hardware. It records every write.
type SimConsole struct {
	id ResourceID

	// OnWrite, when set, is invoked for every write.
	OnWrite WriteHook

	mu      sync.Mutex
	written [][]byte
	rx      [][]byte
	closed  bool
}

// NewSimConsole constructs a simulator. An empty id gets a random identity.
func NewSimConsole(id ResourceID) *SimConsole {
	if id == "" {
		id = NewResourceID()
	}
	return &SimConsole{id: id}
}

func (s *SimConsole) ID() ResourceID { return s.id }

func (s *SimConsole) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &TransportError{Op: "write", Resource: s.id, Err: ErrClosed}
	}
	if s.OnWrite != nil {
		reply, err := s.OnWrite(p)
		if err != nil {
			return &TransportError{Op: "write", Resource: s.id, Err: err}
		}
		if len(reply) > 0 {
			s.rx = append(s.rx, append([]byte(nil), reply...))
		}
	}
	s.written = append(s.written, append([]byte(nil), p...))
	return nil
}

func (s *SimConsole) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &TransportError{Op: "read", Resource: s.id, Err: ErrClosed}
	}
	if len(s.rx) == 0 {
		return []byte{}, nil
	}
	chunk := s.rx[0]
	s.rx = s.rx[1:]
	return chunk, nil
}

// Feed queues data to be returned by subsequent reads.
func (s *SimConsole) Feed(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rx = append(s.rx, append([]byte(nil), p...))
}

// Written returns a copy of every successful write, oldest first.
func (s *SimConsole) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.written))
	for i, w := range s.written {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Lines returns the writes as strings.
func (s *SimConsole) Lines() []string {
	written := s.Written()
	out := make([]string, len(written))
	for i, w := range written {
		out[i] = string(w)
	}
	return out
}

// Close marks the console closed; further I/O fails with ErrClosed.
func (s *SimConsole) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
