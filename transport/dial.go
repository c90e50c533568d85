package transport

import (
	"io"
	"net"
	"syscall"

	"github.com/nczempin/tinyhttpd/errors"
)

// ClientTransport is the dialing side of a connection, over TCP or a Unix
// domain socket.
type ClientTransport struct {
	conn net.Conn
}

// NewClientTransport creates an unconnected ClientTransport
func NewClientTransport() *ClientTransport {
	return &ClientTransport{
		conn: nil,
	}
}

// Connect dials network ("tcp" or "unix") at address
func (t *ClientTransport) Connect(network, address string) error {
	if t.conn != nil {
		return errors.NewTransportError(errors.TransportErrorSocketConnectFailure, "already connected", nil)
	}

	conn, err := net.Dial(network, address)
	if err != nil {
		// Classify network errors using type assertions
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			var dnsErr *net.DNSError
			if errors.As(opErr.Err, &dnsErr) {
				return errors.NewTransportError(errors.TransportErrorDnsFailure, "failed to resolve "+address, err)
			}
		}
		return errors.NewTransportError(errors.TransportErrorSocketConnectFailure, "failed to connect to "+address, err)
	}

	// Set TCP_NODELAY to disable Nagle's algorithm for lower latency
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return errors.NewTransportError(errors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
		}
	}

	t.conn = conn
	return nil
}

// Write sends data over the connection
func (t *ClientTransport) Write(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	n, err := t.conn.Write(buf)
	if err != nil {
		// Check for broken pipe or connection reset
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed during write", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	return n, nil
}

// Read receives data from the connection
func (t *ClientTransport) Read(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	n, err := t.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed by peer", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}

	return n, nil
}

// ReadAll reads until the peer closes the connection
func (t *ClientTransport) ReadAll() ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := t.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
				return out, nil
			}
			return out, err
		}
	}
}

// Close closes the connection
func (t *ClientTransport) Close() error {
	if t.conn == nil {
		return nil // Idempotent close
	}

	err := t.conn.Close()
	t.conn = nil

	if err != nil {
		return errors.NewTransportError(errors.TransportErrorConnectionClosed, "failed to close socket", err)
	}

	return nil
}
