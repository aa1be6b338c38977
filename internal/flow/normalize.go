package flow

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/usestring/flowschema/internal/cache"
	"github.com/usestring/flowschema/internal/capture"
	"github.com/usestring/flowschema/pkg/contenttype"
	"github.com/usestring/flowschema/pkg/schema"
	"github.com/usestring/flowschema/pkg/shape"
)

// ErrMalformedPath is returned when a request path is not /service/endpoint.
var ErrMalformedPath = errors.New("malformed request path")

// Normalizer converts exchanges into records. It is safe for concurrent use.
type Normalizer struct {
	types *cache.TypeCache
	stats Stats
}

// NewNormalizer creates a Normalizer. types may be nil to classify without
// memoization.
func NewNormalizer(types *cache.TypeCache) *Normalizer {
	return &Normalizer{types: types}
}

// Stats returns the counters accumulated so far.
func (n *Normalizer) Stats() StatsSnapshot {
	return n.stats.Snapshot()
}

// Normalize builds the record of a single exchange. The only error is
// ErrMalformedPath; body problems degrade the affected structure to empty.
func (n *Normalizer) Normalize(ex *capture.Exchange) (*Record, error) {
	service, endpoint, query, err := SplitPath(ex.Path)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Service:           service,
		Endpoint:          endpoint,
		Method:            ex.Method,
		QueryParameters:   n.queryParameters(query),
		ContentStructure:  schema.Empty(),
		ContentType:       contenttype.None,
		ResponseStructure: schema.Empty(),
	}

	if ex.Method == "POST" {
		if body, ok := n.text(ex.RequestContentType, ex.RequestBody); ok {
			rec.ContentStructure, rec.ContentType = n.requestStructure(body)
		}
	}

	if body, ok := n.text(ex.ResponseContentType, ex.ResponseBody); ok {
		rec.ResponseStructure = n.responseStructure(body)
	}

	n.stats.Normalized.Add(1)
	return rec, nil
}

// SplitPath splits a request target into service, endpoint and the raw query
// string. The part before the first '?' must be exactly two non-empty
// segments after the leading slash.
func SplitPath(target string) (service, endpoint, query string, err error) {
	path, query, _ := strings.Cut(target, "?")

	segments := strings.Split(path, "/")
	if len(segments) != 3 || segments[0] != "" || segments[1] == "" || segments[2] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedPath, target)
	}
	return segments[1], segments[2], query, nil
}

// queryParameters classifies each key=value pair of a query string. A bare
// key maps to the no-type marker. Empty segments are ignored and a repeated
// key keeps its last value.
func (n *Normalizer) queryParameters(query string) *schema.Node {
	if query == "" {
		return schema.Empty()
	}
	params := make(map[string]*schema.Node)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		// The value ends at a second '=': "a=5=x" types "5".
		parts := strings.SplitN(pair, "=", 3)
		if len(parts) == 1 {
			params[parts[0]] = nil
			continue
		}
		params[parts[0]] = schema.Leaf(n.types.Classify(parts[1]))
	}
	return schema.Object(params)
}

func (n *Normalizer) requestStructure(body []byte) (*schema.Node, contenttype.Encoding) {
	node, err := shape.ExtractXML(body, n.types.Classify)
	if err == nil {
		n.stats.RequestXML.Add(1)
		return node, contenttype.XML
	}
	slog.Debug("request body is not XML", slog.String("error", err.Error()))

	node, err = shape.ExtractJSON(body, n.types.Classify)
	if err == nil {
		n.stats.RequestJSON.Add(1)
		return node, contenttype.JSON
	}
	slog.Debug("request body is not JSON", slog.String("error", err.Error()))

	n.stats.RequestUnparsed.Add(1)
	return schema.Empty(), contenttype.None
}

// responseStructure only tries XML: response bodies have no JSON fallback.
func (n *Normalizer) responseStructure(body []byte) *schema.Node {
	node, err := shape.ExtractXML(body, n.types.Classify)
	if err != nil {
		n.stats.ResponseUnparsed.Add(1)
		slog.Debug("response body is not XML", slog.String("error", err.Error()))
		return schema.Empty()
	}
	n.stats.ResponseXML.Add(1)
	return node
}

// text returns the body when it is valid UTF-8; otherwise the exchange is
// treated as having no body. A binary content type does not veto a text body.
func (n *Normalizer) text(contentType string, body []byte) ([]byte, bool) {
	if len(body) == 0 {
		return nil, false
	}
	if _, ok := contenttype.Text(body); !ok {
		n.stats.Undecodable.Add(1)
		return nil, false
	}
	if contenttype.IsBinary(contentType, body) {
		slog.Debug("parsing text body despite binary content type",
			slog.String("content_type", contentType),
		)
	}
	return body, true
}

// Stats counts normalization outcomes with atomic counters.
type Stats struct {
	Normalized       atomic.Int64
	RequestXML       atomic.Int64
	RequestJSON      atomic.Int64
	RequestUnparsed  atomic.Int64
	ResponseXML      atomic.Int64
	ResponseUnparsed atomic.Int64
	Undecodable      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Normalized       int64 `json:"normalized"`
	RequestXML       int64 `json:"request_xml"`
	RequestJSON      int64 `json:"request_json"`
	RequestUnparsed  int64 `json:"request_unparsed"`
	ResponseXML      int64 `json:"response_xml"`
	ResponseUnparsed int64 `json:"response_unparsed"`
	Undecodable      int64 `json:"undecodable"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Normalized:       s.Normalized.Load(),
		RequestXML:       s.RequestXML.Load(),
		RequestJSON:      s.RequestJSON.Load(),
		RequestUnparsed:  s.RequestUnparsed.Load(),
		ResponseXML:      s.ResponseXML.Load(),
		ResponseUnparsed: s.ResponseUnparsed.Load(),
		Undecodable:      s.Undecodable.Load(),
	}
}
