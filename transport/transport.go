package transport

import (
	"fmt"
	"os"

	"github.com/nczempin/tinyhttpd/errors"
)

// Conn is one accepted client connection.
type Conn interface {
	// Read receives data from the peer.
	// Returns the number of bytes read or an error.
	Read(buf []byte) (int, error)

	// Write sends data to the peer.
	// Returns the number of bytes written or an error.
	Write(buf []byte) (int, error)

	// File returns the connection as a file so it can become a child
	// process's standard output. The connection keeps ownership.
	File() *os.File

	// Close closes the connection.
	Close() error
}

// Engine selects how accepted connections perform their reads and writes
type Engine string

const (
	// EngineStd uses blocking read(2)/write(2) on the socket
	EngineStd Engine = "std"
	// EngineIOURing submits recv/send through github.com/iceber/iouring-go
	EngineIOURing Engine = "iouring"
	// EngineURing submits read/write through github.com/godzie44/go-uring
	EngineURing Engine = "uring"
)

// ParseEngine validates an engine name
func ParseEngine(name string) (Engine, error) {
	switch e := Engine(name); e {
	case EngineStd, EngineIOURing, EngineURing:
		return e, nil
	case "":
		return EngineStd, nil
	default:
		return "", errors.NewInvalidArgumentError(fmt.Sprintf("unknown engine %q", name))
	}
}
