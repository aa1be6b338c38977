// Package capture reads recorded HTTP exchanges from capture containers.
//
// Two container formats are supported and detected from the first byte of the
// file: mitmproxy flow files (a stream of tnetstring records) and HAR 1.2
// archives (JSON).
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when the capture path is not a regular file.
	ErrNotFound = errors.New("capture file not found")

	// ErrInvalidFormat is returned when the container fails its sanity check.
	ErrInvalidFormat = errors.New("not a valid capture file")
)

// Format identifies a capture container format.
type Format string

const (
	FormatMitmproxy Format = "mitmproxy"
	FormatHAR       Format = "har"
)

// Exchange is one captured request/response pair.
type Exchange struct {
	Method string
	Host   string
	// Path is the request target including an optional query string.
	Path   string
	Status int

	RequestContentType  string
	RequestBody         []byte
	ResponseContentType string
	ResponseBody        []byte
}

// Reader yields exchanges in capture order.
type Reader interface {
	// Next returns the next exchange, or io.EOF when the capture is exhausted.
	Next() (*Exchange, error)
	Close() error
}

// Open opens a capture file and validates its container header. The format is
// sniffed from the first non-space byte: a digit starts a tnetstring record,
// '{' starts a HAR document.
func Open(path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}

	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f io.ReadCloser, path string) (Reader, error) {
	br := bufio.NewReader(f)

	format, err := sniff(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}

	switch format {
	case FormatMitmproxy:
		r, err := newFlowReader(br, f, path)
		if err != nil {
			return nil, err
		}
		return r, nil
	case FormatHAR:
		r, err := newHARReader(br, f, path)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, path)
	}
}

// sniff peeks at the first non-space byte without consuming record data.
func sniff(br *bufio.Reader) (Format, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("empty file")
			}
			return "", err
		}
		switch c := b[0]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			br.ReadByte()
		case c >= '0' && c <= '9':
			return FormatMitmproxy, nil
		case c == '{':
			return FormatHAR, nil
		default:
			return "", fmt.Errorf("unexpected leading byte %q", c)
		}
	}
}

// ReadAll drains r into a slice. The whole capture is read before any
// processing starts.
func ReadAll(r Reader) ([]Exchange, error) {
	var exchanges []Exchange
	for {
		ex, err := r.Next()
		if errors.Is(err, io.EOF) {
			return exchanges, nil
		}
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, *ex)
	}
}

// OpenAll opens path and reads every exchange from it.
func OpenAll(path string) ([]Exchange, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadAll(r)
}

// headerValue returns the first value of a header (case-insensitive).
func headerValue(headers [][2]string, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h[0], name) {
			return h[1]
		}
	}
	return ""
}
