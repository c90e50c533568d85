package protocol

import "strings"

// MaxLine bounds every request and header line, including the newline.
const MaxLine = 8192

// RequestLine holds the whitespace separated tokens of the first request line.
// Missing tokens are left empty.
type RequestLine struct {
	Method  string
	URI     string
	Version string
}

// ParseRequestLine splits line into method, URI and version
func ParseRequestLine(line string) RequestLine {
	fields := strings.Fields(line)
	var rl RequestLine
	if len(fields) > 0 {
		rl.Method = fields[0]
	}
	if len(fields) > 1 {
		rl.URI = fields[1]
	}
	if len(fields) > 2 {
		rl.Version = fields[2]
	}
	return rl
}

// IsGet reports whether the method is GET, ignoring case
func (rl RequestLine) IsGet() bool {
	return strings.EqualFold(rl.Method, "GET")
}

// IsHeaderTerminator reports whether line is the blank line ending the headers
func IsHeaderTerminator(line []byte) bool {
	s := string(line)
	return s == "\r\n" || s == "\n"
}

// BuildRequest formats a bodiless HTTP/1.0 request
func BuildRequest(method, uri string, headers []Header) []byte {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(uri)
	b.WriteString(" HTTP/1.0\r\n")
	for _, h := range headers {
		b.WriteString(h.Key)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}
