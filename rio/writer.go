package rio

import (
	"io"

	"github.com/nczempin/tinyhttpd/errors"
	"golang.org/x/sys/unix"
)

// WriteFull writes all of p to w, retrying after interrupted or short writes
func WriteFull(w io.Writer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.Write(p[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
				return total, err
			}
			return total, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
		}
		if n == 0 {
			return total, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "short write", io.ErrShortWrite)
		}
	}
	return total, nil
}

// WriteString is WriteFull for strings
func WriteString(w io.Writer, s string) (int, error) {
	return WriteFull(w, []byte(s))
}
