package server

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/nczempin/tinyhttpd/content"
	"github.com/nczempin/tinyhttpd/errors"
	"github.com/nczempin/tinyhttpd/protocol"
	"github.com/nczempin/tinyhttpd/rio"
)

// Handler serves exactly one request per connection
type Handler struct {
	// Root is the document root; empty means the current directory.
	Root string
	// HeaderEcho, when set, receives every request header line as it is discarded.
	HeaderEcho io.Writer
	// Logger, when set, gets one line per request outcome.
	Logger *log.Logger
}

// Serve reads one request from conn and writes the response. Client errors
// (501, 404, 403) are answered and reported as a nil error; I/O and content
// failures are returned. conn is never closed here.
func (h *Handler) Serve(conn io.ReadWriter) error {
	r := rio.NewReader(conn)

	line, err := r.ReadLine(protocol.MaxLine)
	if err != nil {
		return err
	}
	req := protocol.ParseRequestLine(string(line))

	if !req.IsGet() {
		return h.reject(conn, req, errors.NotImplemented(req.Method))
	}

	if err := h.consumeHeaders(r); err != nil {
		return err
	}

	if protocol.Escapes(req.URI) {
		return h.reject(conn, req, errors.Forbidden(req.URI, "Tiny won't serve paths outside the document root"))
	}

	target := protocol.Resolve(h.Root, req.URI)

	info, err := os.Stat(target.Path)
	if err != nil {
		return h.reject(conn, req, errors.NotFound(target.Path))
	}

	switch target.Kind {
	case protocol.Static:
		if !info.Mode().IsRegular() || info.Mode().Perm()&0400 == 0 {
			return h.reject(conn, req, errors.Forbidden(target.Path, "Tiny couldn't read the file"))
		}
		if err := content.ServeStatic(conn, target.Path, info.Size()); err != nil {
			return err
		}
		h.logf("%s %s -> 200 static %s (%s)", req.Method, req.URI, target.Path, humanize.Bytes(uint64(info.Size())))

	case protocol.Dynamic:
		if !info.Mode().IsRegular() || info.Mode().Perm()&0100 == 0 {
			return h.reject(conn, req, errors.Forbidden(target.Path, "Tiny couldn't run the CGI program"))
		}
		if err := content.ServeDynamic(conn, target.Path, target.Query); err != nil {
			return err
		}
		h.logf("%s %s -> 200 dynamic %s", req.Method, req.URI, target.Path)
	}

	return nil
}

// consumeHeaders discards lines up to and including the blank line
func (h *Handler) consumeHeaders(r *rio.Reader) error {
	for {
		line, err := r.ReadLine(protocol.MaxLine)
		if err == io.EOF {
			return errors.NewTransportError(errors.TransportErrorConnectionClosed, "stream ended inside request headers", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return err
		}
		if protocol.IsHeaderTerminator(line) {
			return nil
		}
		if h.HeaderEcho != nil {
			fmt.Fprintf(h.HeaderEcho, "%s", line)
		}
	}
}

func (h *Handler) reject(conn io.Writer, req protocol.RequestLine, se *errors.StatusError) error {
	h.logf("%s %s -> %d %s", req.Method, req.URI, se.Code, se.ShortMsg)
	return protocol.WriteError(conn, se)
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}
