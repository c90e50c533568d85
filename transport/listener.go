package transport

import (
	"fmt"
	"os"
	"sync"

	"github.com/godzie44/go-uring/uring"
	"github.com/iceber/iouring-go"
	"github.com/nczempin/tinyhttpd/errors"
	"golang.org/x/sys/unix"
)

// Backlog is the listen(2) queue length
const Backlog = 1024

// ringEntries is the queue depth of the io_uring engines. Only one request
// is ever in flight.
const ringEntries = 32

// Listener is a bound, listening socket. Accept hands out one connection at
// a time using the configured engine.
type Listener struct {
	fd     int
	path   string
	engine Engine

	iour *iouring.IOURing
	ring *uring.Ring

	closeOnce sync.Once
	closeErr  error
}

// ListenTCP binds port on all IPv4 interfaces. Port 0 picks a free port.
func ListenTCP(port int, engine Engine) (*Listener, error) {
	if port < 0 || port > 65535 {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("port %d out of range", port))
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "failed to create socket", err)
	}

	// Eliminates "Address already in use" from bind
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "failed to set SO_REUSEADDR", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return nil, errors.NewTransportError(errors.TransportErrorSocketBindFailure, fmt.Sprintf("failed to bind port %d", port), err)
	}

	return listen(fd, "", engine)
}

// ListenUnix binds a Unix domain socket at path, replacing a stale socket file
func ListenUnix(path string, engine Engine) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "failed to create socket", err)
	}

	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
		os.Remove(path)
	}

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, errors.NewTransportError(errors.TransportErrorSocketBindFailure, fmt.Sprintf("failed to bind %s", path), err)
	}

	return listen(fd, path, engine)
}

func listen(fd int, path string, engine Engine) (*Listener, error) {
	l := &Listener{fd: fd, path: path, engine: engine}

	if err := unix.Listen(fd, Backlog); err != nil {
		l.Close()
		return nil, errors.NewTransportError(errors.TransportErrorSocketListenFailure, "failed to listen", err)
	}

	switch engine {
	case EngineStd, "":
		l.engine = EngineStd
	case EngineIOURing:
		iour, err := iouring.New(ringEntries)
		if err != nil {
			l.Close()
			return nil, errors.NewTransportError(errors.TransportErrorIoUringInit, "failed to initialize io_uring", err)
		}
		l.iour = iour
	case EngineURing:
		ring, err := uring.New(ringEntries)
		if err != nil {
			l.Close()
			return nil, errors.NewTransportError(errors.TransportErrorIoUringInit, "failed to initialize io_uring", err)
		}
		l.ring = ring
	default:
		l.Close()
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown engine %q", engine))
	}

	return l, nil
}

// Accept blocks until a client connects
func (l *Listener) Accept() (Conn, error) {
	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, errors.NewTransportError(errors.TransportErrorAcceptFailure, "accept failed", err)
		}

		base := newFdConn(nfd)
		switch l.engine {
		case EngineIOURing:
			return &iouringConn{fdConn: base, iour: l.iour}, nil
		case EngineURing:
			return &uringConn{fdConn: base, ring: l.ring}, nil
		default:
			return base, nil
		}
	}
}

// Port returns the bound TCP port, or 0 for a Unix socket
func (l *Listener) Port() int {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return 0
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return in4.Port
	}
	return 0
}

// Path returns the socket path of a Unix listener
func (l *Listener) Path() string {
	return l.path
}

// Engine reports the engine accepted connections use
func (l *Listener) Engine() Engine {
	return l.engine
}

// Close stops the listener. A goroutine blocked in Accept is woken up and
// gets an error.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		unix.Shutdown(l.fd, unix.SHUT_RDWR)
		if err := unix.Close(l.fd); err != nil {
			l.closeErr = errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "failed to close listener", err)
		}
		if l.path != "" {
			os.Remove(l.path)
		}
		if l.iour != nil {
			l.iour.Close()
		}
		if l.ring != nil {
			l.ring.Close()
		}
	})
	return l.closeErr
}
