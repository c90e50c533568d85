// Package content produces response bodies: static files read from the
// document root and the output of CGI programs.
package content

import (
	"io"
	"os"

	"github.com/nczempin/tinyhttpd/errors"
	"github.com/nczempin/tinyhttpd/protocol"
	"github.com/nczempin/tinyhttpd/rio"
	"golang.org/x/sys/unix"
)

// ServeStatic writes a 200 response for the file at path. size must be the
// file's size as reported by stat; it becomes the Content-length.
func ServeStatic(w io.Writer, path string, size int64) error {
	if _, err := rio.WriteFull(w, protocol.StaticHeader(size, protocol.FileType(path))); err != nil {
		return err
	}

	body, release, err := mapFile(path, size)
	if err != nil {
		return err
	}
	defer release()

	_, err = rio.WriteFull(w, body)
	return err
}

// mapFile maps the file read-only. The descriptor is closed before
// returning; the mapping stays valid until release is called.
func mapFile(path string, size int64) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewServeError(errors.ServeErrorFileOpenFailure, path, err)
	}
	defer f.Close()

	// mmap rejects zero length mappings
	if size == 0 {
		return nil, func() {}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.NewServeError(errors.ServeErrorFileMapFailure, path, err)
	}
	return data, func() { unix.Munmap(data) }, nil
}
