// Package contenttype classifies body encodings and content types.
package contenttype

import (
	"strings"
	"unicode/utf8"
)

// Encoding is the structured encoding detected for a request body.
type Encoding string

const (
	// None means no structure could be extracted. It persists as "".
	None Encoding = ""
	XML  Encoding = "xml"
	JSON Encoding = "json"
)

// String returns the persisted form of the encoding.
func (e Encoding) String() string {
	return string(e)
}

// ParseEncoding resolves a persisted encoding tag. Unknown tags map to None.
func ParseEncoding(s string) Encoding {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xml":
		return XML
	case "json":
		return JSON
	default:
		return None
	}
}

// IsBinary returns true if the content type indicates binary content.
// Falls back to UTF-8 validation when contentType is empty or unrecognized.
func IsBinary(contentType string, data []byte) bool {
	ct := strings.ToLower(contentType)

	// Known text content types
	if strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "javascript") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "yaml") ||
		strings.Contains(ct, "form-urlencoded") {
		return false
	}

	// Known binary content types
	if strings.HasPrefix(ct, "image/") ||
		strings.HasPrefix(ct, "audio/") ||
		strings.HasPrefix(ct, "video/") ||
		strings.Contains(ct, "octet-stream") ||
		strings.Contains(ct, "protobuf") ||
		strings.Contains(ct, "pdf") {
		return true
	}

	return !utf8.Valid(data)
}

// Text returns data as text when it is a non-empty, valid UTF-8 body. The
// declared content type plays no part: captures routinely label XML or JSON
// as application/octet-stream, so IsBinary is only a hint for callers.
func Text(data []byte) (string, bool) {
	if len(data) == 0 || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}
