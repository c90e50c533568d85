package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nczempin/tinyhttpd/errors"
	"github.com/nczempin/tinyhttpd/rio"
)

// ServerName is sent in the Server header of every successful response
const ServerName = "Tiny Web Server"

var headerSeparator = []byte("\r\n\r\n")

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// Response is a parsed HTTP/1.0 response
type Response struct {
	StatusCode    int
	StatusMessage string
	Headers       []Header
	Body          []byte
	ContentLength int
}

// Header returns the first header value matching key case-insensitively
func (r *Response) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// StaticHeader builds the response header block for a static file
func StaticHeader(size int64, fileType string) []byte {
	var b bytes.Buffer
	b.WriteString("HTTP/1.0 200 OK\r\n")
	fmt.Fprintf(&b, "Server: %s\r\n", ServerName)
	fmt.Fprintf(&b, "Content-length:%d\r\n", size)
	fmt.Fprintf(&b, "Content-type:%s\r\n\r\n", fileType)
	return b.Bytes()
}

// DynamicHeader builds the partial header a CGI program's output follows.
// It carries no length and no terminating blank line.
func DynamicHeader() []byte {
	return []byte("HTTP/1.0 200 OK\r\nServer: " + ServerName + "\r\n")
}

// ErrorPage renders the HTML body for a client error
func ErrorPage(se *errors.StatusError) string {
	var b strings.Builder
	b.WriteString("<html><title>Tiny Error</title>")
	b.WriteString("<body bgcolor=\"ffffff\">\r\n")
	fmt.Fprintf(&b, "%d: %s\r\n", se.Code, se.ShortMsg)
	fmt.Fprintf(&b, "<p>%s: %s\r\n", se.LongMsg, se.Cause)
	b.WriteString("<hr><em>The Tiny Web server</em>\r\n")
	return b.String()
}

// WriteError sends a complete error response for se
func WriteError(w io.Writer, se *errors.StatusError) error {
	body := ErrorPage(se)

	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.0 %d %s\r\n", se.Code, se.ShortMsg)
	b.WriteString("Content-type: text/html\r\n")
	fmt.Fprintf(&b, "Content-length: %d\r\n\r\n", len(body))
	b.WriteString(body)

	_, err := rio.WriteFull(w, b.Bytes())
	return err
}

// ParseResponse parses a complete response as read up to end of stream.
// The body is everything after the header block, truncated to
// Content-length when the header is present.
func ParseResponse(raw []byte) (*Response, error) {
	pos := bytes.Index(raw, headerSeparator)
	if pos < 0 {
		return nil, errors.NewServeError(errors.ServeErrorInvalidResponse, "no header terminator found", nil)
	}
	headerSize := pos + len(headerSeparator)

	parts := bytes.SplitN(raw[:pos], []byte("\n"), 2)
	statusLine := bytes.TrimSuffix(parts[0], []byte("\r"))

	// "HTTP/1.0 200 OK"
	statusParts := bytes.SplitN(statusLine, []byte(" "), 3)
	if len(statusParts) < 2 {
		return nil, errors.NewServeError(errors.ServeErrorInvalidResponse, "invalid status line format", nil)
	}

	statusCode, err := strconv.Atoi(string(statusParts[1]))
	if err != nil {
		return nil, errors.NewServeError(
			errors.ServeErrorInvalidResponse,
			fmt.Sprintf("invalid status code: %s", statusParts[1]),
			err,
		)
	}

	resp := &Response{StatusCode: statusCode, ContentLength: -1}
	if len(statusParts) >= 3 {
		resp.StatusMessage = string(statusParts[2])
	}

	if len(parts) > 1 {
		for _, line := range bytes.Split(parts[1], []byte("\n")) {
			line = bytes.TrimSuffix(line, []byte("\r"))
			if len(line) == 0 {
				break
			}
			kv := bytes.SplitN(line, []byte(":"), 2)
			if len(kv) != 2 {
				continue
			}
			h := Header{Key: string(kv[0]), Value: strings.TrimSpace(string(kv[1]))}
			resp.Headers = append(resp.Headers, h)
			if strings.EqualFold(h.Key, "Content-length") {
				if n, err := strconv.Atoi(h.Value); err == nil {
					resp.ContentLength = n
				}
			}
		}
	}

	body := raw[headerSize:]
	if resp.ContentLength >= 0 {
		if len(body) < resp.ContentLength {
			return nil, errors.NewServeError(
				errors.ServeErrorInvalidResponse,
				fmt.Sprintf("body has %d bytes, expected %d", len(body), resp.ContentLength),
				nil,
			)
		}
		body = body[:resp.ContentLength]
	}
	resp.Body = make([]byte, len(body))
	copy(resp.Body, body)

	return resp, nil
}
