package transport

import (
	"github.com/godzie44/go-uring/uring"
	"github.com/nczempin/tinyhttpd/errors"
)

// uringConn performs its reads and writes through a godzie44/go-uring ring
// shared with the listener. One SQE is queued and reaped per call.
type uringConn struct {
	*fdConn
	ring *uring.Ring
}

// complete submits the queued SQE and returns its result
func (c *uringConn) complete(failure errors.TransportError, op string) (int, error) {
	if _, err := c.ring.Submit(); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit "+op+" request",
			err,
		)
	}

	cqe, err := c.ring.WaitCQEvents(1)
	if err != nil {
		return 0, errors.NewTransportError(failure, "failed to wait for "+op+" completion", err)
	}

	if err := cqe.Error(); err != nil {
		c.ring.SeenCQE(cqe)
		return 0, errors.NewTransportError(failure, op+" operation failed", err)
	}

	n := int(cqe.Res)
	c.ring.SeenCQE(cqe)
	return n, nil
}

// Read receives data from the connection using io_uring
func (c *uringConn) Read(buf []byte) (int, error) {
	if c.file == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	sqe := uring.Read(c.file.Fd(), buf, 0)
	if err := c.ring.QueueSQE(sqe, 0, 0); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to queue read request",
			err,
		)
	}

	n, err := c.complete(errors.TransportErrorSocketReadFailure, "read")
	if err != nil {
		return 0, err
	}

	if n == 0 && len(buf) > 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed by peer",
			nil,
		)
	}

	return n, nil
}

// Write sends data over the connection using io_uring
func (c *uringConn) Write(buf []byte) (int, error) {
	if c.file == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	sqe := uring.Write(c.file.Fd(), buf, 0)
	if err := c.ring.QueueSQE(sqe, 0, 0); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to queue write request",
			err,
		)
	}

	n, err := c.complete(errors.TransportErrorSocketWriteFailure, "write")
	if err != nil {
		return 0, err
	}

	if n <= 0 && len(buf) > 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed during write",
			nil,
		)
	}

	return n, nil
}
