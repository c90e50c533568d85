package protocol

import "strings"

const (
	// DynamicMarker is the path segment that routes a request to a CGI program.
	DynamicMarker = "cgi-bin"
	// DefaultDocument is appended to static URIs ending in a slash.
	DefaultDocument = "home.html"
	// DefaultRoot is the document root when none is configured.
	DefaultRoot = "."
)

// Kind tags a resolved target as static or dynamic content
type Kind int

const (
	Static Kind = iota
	Dynamic
)

func (k Kind) String() string {
	if k == Dynamic {
		return "dynamic"
	}
	return "static"
}

// Target is the result of resolving a request URI against a document root
type Target struct {
	Path  string
	Query string
	Kind  Kind
}

// Resolve maps uri onto root. A URI containing DynamicMarker anywhere is
// dynamic and keeps everything after the first '?' as its query string.
// Static URIs drop their query component.
func Resolve(root, uri string) Target {
	root = normalizeRoot(root)

	if !strings.Contains(uri, DynamicMarker) {
		if i := strings.IndexByte(uri, '?'); i >= 0 {
			uri = uri[:i]
		}
		path := root + uri
		if strings.HasSuffix(uri, "/") {
			path += DefaultDocument
		}
		return Target{Path: path, Kind: Static}
	}

	var query string
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		query = uri[i+1:]
		uri = uri[:i]
	}
	return Target{Path: root + uri, Query: query, Kind: Dynamic}
}

// Escapes reports whether the path part of uri contains a ".." segment
func Escapes(uri string) bool {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	for _, seg := range strings.Split(uri, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func normalizeRoot(root string) string {
	if root == "" {
		return DefaultRoot
	}
	return strings.TrimRight(root, "/")
}
