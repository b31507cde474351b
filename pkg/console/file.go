package console

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// FileConsole is a raw byte transport on top of a character device (or any
// file path). Line settings such as baud rate are left to the OS; configure
// the tty beforehand (e.g. with stty). A background goroutine drains the
// device so Read never blocks.
type FileConsole struct {
	id   ResourceID
	path string
	f    *os.File

	mu     sync.Mutex
	buf    []byte
	rerr   error
	closed bool
}

// OpenFile opens path for reading and writing. An empty id gets a random
// identity.
func OpenFile(path string, id ResourceID) (*FileConsole, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("console: open %s: %w", path, err)
	}
	if id == "" {
		id = NewResourceID()
	}
	c := &FileConsole{
		id:   id,
		path: path,
		f:    f,
	}
	go c.readLoop()
	return c, nil
}

func (c *FileConsole) readLoop() {
	chunk := make([]byte, 4096)
	for {
		n, err := c.f.Read(chunk)
		c.mu.Lock()
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil && err != io.EOF {
			c.rerr = err
		}
		c.mu.Unlock()
		// Regular files hit EOF; ttys do not.
		if err != nil {
			return
		}
	}
}

func (c *FileConsole) ID() ResourceID { return c.id }

// Path returns the device path.
func (c *FileConsole) Path() string { return c.path }

func (c *FileConsole) Write(p []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return &TransportError{Op: "write", Resource: c.id, Err: ErrClosed}
	}
	if _, err := c.f.Write(p); err != nil {
		return &TransportError{Op: "write", Resource: c.id, Err: err}
	}
	return nil
}

func (c *FileConsole) Read() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, &TransportError{Op: "read", Resource: c.id, Err: ErrClosed}
	}
	if len(c.buf) == 0 {
		if c.rerr != nil {
			return []byte{}, &TransportError{Op: "read", Resource: c.id, Err: c.rerr}
		}
		return []byte{}, nil
	}
	out := c.buf
	c.buf = nil
	return out, nil
}

// Close releases the device.
func (c *FileConsole) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.f.Close()
}
