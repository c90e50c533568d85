// Package rio provides robust buffered reads and full writes over a byte
// stream. Reads are amortized through a fixed internal buffer so that line
// parsing never consumes bytes past what the caller asked for.
package rio

import (
	"io"

	"github.com/nczempin/tinyhttpd/errors"
	"golang.org/x/sys/unix"
)

// BufSize is the capacity of a Reader's internal buffer.
const BufSize = 8192

// Reader is a buffered reader bound to one stream.
// Invariant: pos+cnt <= BufSize, and the buffer is refilled only when cnt == 0.
type Reader struct {
	src io.Reader
	cnt int
	pos int
	buf [BufSize]byte
}

// NewReader associates a fresh buffer state with src
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Buffered returns the number of unconsumed bytes held in the buffer
func (r *Reader) Buffered() int {
	return r.cnt
}

// read copies min(len(p), r.cnt) bytes out of the buffer, refilling it with
// a single underlying Read first if it is empty. It returns 0, io.EOF on a
// clean end of stream.
func (r *Reader) read(p []byte) (int, error) {
	for r.cnt <= 0 {
		n, err := r.src.Read(r.buf[:])
		if n > 0 {
			r.cnt = n
			r.pos = 0
			break
		}
		if err == nil {
			continue
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, io.EOF) || errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
			return 0, io.EOF
		}
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "buffered read failed", err)
	}

	n := len(p)
	if r.cnt < n {
		n = r.cnt
	}
	copy(p, r.buf[r.pos:r.pos+n])
	r.pos += n
	r.cnt -= n
	return n, nil
}

// readFull reads exactly len(p) bytes unless the stream ends first, in
// which case it returns the short count and io.ErrUnexpectedEOF.
func (r *Reader) readFull(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := r.read(p[total:])
		if err == io.EOF {
			if total == 0 {
				return 0, io.EOF
			}
			return total, io.ErrUnexpectedEOF
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ReadLine returns the next line including its trailing newline. It stops
// early at end of stream and never returns more than maxLen-1 bytes. If the
// stream ends before any byte is read, it returns nil, io.EOF.
func (r *Reader) ReadLine(maxLen int) ([]byte, error) {
	if maxLen < 2 {
		return nil, errors.NewInvalidArgumentError("line length must allow at least one byte")
	}

	line := make([]byte, 0, 128)
	var c [1]byte
	for len(line) < maxLen-1 {
		_, err := r.readFull(c[:])
		if err == io.EOF {
			if len(line) == 0 {
				return nil, io.EOF
			}
			break
		}
		if err != nil {
			return line, err
		}
		line = append(line, c[0])
		if c[0] == '\n' {
			break
		}
	}
	return line, nil
}
