package transport

import (
	"github.com/iceber/iouring-go"
	"github.com/nczempin/tinyhttpd/errors"
	"golang.org/x/sys/unix"
)

// iouringConn performs its reads and writes through an iceber/iouring-go
// ring shared with the listener. Requests are submitted one at a time and
// waited for, so the connection stays fully synchronous.
type iouringConn struct {
	*fdConn
	iour *iouring.IOURing
}

// submit runs one prepared request to completion and returns the raw CQE
// result. Recv and Send install no result resolver, so the byte count is
// read from the request itself rather than from ReturnInt.
func (c *iouringConn) submit(prepReq iouring.PrepRequest, failure errors.TransportError, op string) (int, error) {
	ch := make(chan iouring.Result, 1)
	req, err := c.iour.SubmitRequest(prepReq, ch)
	if err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit "+op+" request",
			err,
		)
	}

	result := <-ch
	if err := result.Err(); err != nil {
		return 0, errors.NewTransportError(failure, op+" failed", err)
	}

	res, err := req.GetRes()
	if err != nil {
		return 0, errors.NewTransportError(failure, op+" did not complete", err)
	}

	// negative results carry -errno
	if res < 0 {
		errno := unix.Errno(-res)
		if errors.Is(errno, unix.ECONNRESET) || errors.Is(errno, unix.EPIPE) {
			return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed during "+op, errno)
		}
		return 0, errors.NewTransportError(failure, op+" failed", errno)
	}

	return res, nil
}

// Read receives data from the connection using io_uring
func (c *iouringConn) Read(buf []byte) (int, error) {
	if c.file == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	n, err := c.submit(iouring.Recv(c.fd, buf, 0), errors.TransportErrorSocketReadFailure, "read")
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
func (c *iouringConn) Write(buf []byte) (int, error) {
	if c.file == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	n, err := c.submit(iouring.Send(c.fd, buf, 0), errors.TransportErrorSocketWriteFailure, "write")
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
