package protocol

import "strings"

// fileTypes is checked in order and the first match wins. Matching is by
// substring, so "a.html.txt" is served as text/html.
var fileTypes = []struct {
	marker   string
	mimeType string
}{
	{".html", "text/html"},
	{".gif", "image/gif"},
	{".jpg", "image/jpg"},
}

// FileType returns the Content-type for a file name
func FileType(name string) string {
	for _, ft := range fileTypes {
		if strings.Contains(name, ft.marker) {
			return ft.mimeType
		}
	}
	return "text/plain"
}
