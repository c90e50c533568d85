package transport

import (
	"os"

	"github.com/nczempin/tinyhttpd/errors"
	"golang.org/x/sys/unix"
)

// fdConn is a connection backed by a blocking socket descriptor
type fdConn struct {
	fd   int
	file *os.File
}

func newFdConn(fd int) *fdConn {
	return &fdConn{
		fd:   fd,
		file: os.NewFile(uintptr(fd), "conn"),
	}
}

// Read receives data with a single read(2)
func (c *fdConn) Read(buf []byte) (int, error) {
	if c.file == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if errors.Is(err, unix.ECONNRESET) {
			return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection reset by peer", err)
		}
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}

	if n == 0 && len(buf) > 0 {
		return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed by peer", nil)
	}

	return n, nil
}

// Write sends data with a single write(2); callers loop for the rest
func (c *fdConn) Write(buf []byte) (int, error) {
	if c.file == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	n, err := unix.Write(c.fd, buf)
	if err != nil {
		// Check for broken pipe or connection reset
		if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET) {
			return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed during write", err)
		}
		return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	return n, nil
}

func (c *fdConn) File() *os.File {
	return c.file
}

// Close closes the descriptor
func (c *fdConn) Close() error {
	if c.file == nil {
		return nil // Idempotent close
	}

	err := c.file.Close()
	c.file = nil
	c.fd = -1

	if err != nil {
		return errors.NewTransportError(errors.TransportErrorConnectionClosed, "failed to close socket", err)
	}
	return nil
}
