package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// flowReader decodes a mitmproxy flow file: a sequence of tnetstring
// dictionaries, one per flow.
type flowReader struct {
	br     *bufio.Reader
	closer io.Closer
	path   string

	// pending holds the record decoded by the header sanity check.
	pending map[string]any
	index   int
}

func newFlowReader(br *bufio.Reader, closer io.Closer, path string) (*flowReader, error) {
	r := &flowReader{br: br, closer: closer, path: path}

	first, err := r.readRecord()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	r.pending = first
	return r, nil
}

func (r *flowReader) readRecord() (map[string]any, error) {
	v, err := readTNetString(r.br)
	if err != nil {
		return nil, err
	}
	record, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("flow record is %T, not a dictionary", v)
	}
	return record, nil
}

// Next returns the next HTTP exchange. Non-HTTP flows (tcp, udp, dns) and
// flows without a request are skipped.
func (r *flowReader) Next() (*Exchange, error) {
	for {
		record := r.pending
		r.pending = nil
		if record == nil {
			var err error
			record, err = r.readRecord()
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %s: record %d: %v", ErrInvalidFormat, r.path, r.index, err)
			}
		}
		r.index++

		ex, ok := flowToExchange(record)
		if !ok {
			slog.Debug("skipping non-HTTP flow",
				slog.String("path", r.path),
				slog.Int("record", r.index-1),
			)
			continue
		}
		return ex, nil
	}
}

func (r *flowReader) Close() error {
	return r.closer.Close()
}

// flowToExchange maps a decoded flow dictionary onto an Exchange.
func flowToExchange(record map[string]any) (*Exchange, bool) {
	if typ, ok := asString(record["type"]); ok && typ != "http" {
		return nil, false
	}
	req, ok := record["request"].(map[string]any)
	if !ok {
		return nil, false
	}

	ex := &Exchange{}
	ex.Method, _ = asString(req["method"])
	ex.Path, _ = asString(req["path"])
	ex.Host, _ = asString(req["host"])

	reqHeaders := flowHeaders(req["headers"])
	ex.RequestContentType = headerValue(reqHeaders, "content-type")
	ex.RequestBody = decodeContent(flowContent(req["content"]), headerValue(reqHeaders, "content-encoding"))

	if resp, ok := record["response"].(map[string]any); ok {
		if code, ok := resp["status_code"].(int64); ok {
			ex.Status = int(code)
		}
		respHeaders := flowHeaders(resp["headers"])
		ex.ResponseContentType = headerValue(respHeaders, "content-type")
		ex.ResponseBody = decodeContent(flowContent(resp["content"]), headerValue(respHeaders, "content-encoding"))
	}

	return ex, true
}

func flowContent(v any) []byte {
	switch c := v.(type) {
	case []byte:
		return c
	case string:
		return []byte(c)
	default:
		return nil
	}
}

// flowHeaders converts mitmproxy's [[name, value], ...] header list.
func flowHeaders(v any) [][2]string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	headers := make([][2]string, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		name, ok1 := asString(pair[0])
		value, ok2 := asString(pair[1])
		if ok1 && ok2 {
			headers = append(headers, [2]string{name, value})
		}
	}
	return headers
}
