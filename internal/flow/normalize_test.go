package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/flowschema/internal/cache"
	"github.com/usestring/flowschema/internal/capture"
	"github.com/usestring/flowschema/pkg/contenttype"
	"github.com/usestring/flowschema/pkg/schema"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		target   string
		service  string
		endpoint string
		query    string
	}{
		{"/fleet/info", "fleet", "info", ""},
		{"/fleet/info?id=5", "fleet", "info", "id=5"},
		{"/fleet/info?", "fleet", "info", ""},
		{"/fleet/info?a=1?b=2", "fleet", "info", "a=1?b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			service, endpoint, query, err := SplitPath(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.service, service)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.query, query)
		})
	}
}

func TestSplitPath_Malformed(t *testing.T) {
	for _, target := range []string{"", "/", "/fleet", "/fleet/", "//info", "/a/b/c", "fleet/info", "/fleet/info/", "?id=1"} {
		t.Run(target, func(t *testing.T) {
			_, _, _, err := SplitPath(target)
			assert.ErrorIs(t, err, ErrMalformedPath)
		})
	}
}

func TestNormalize_QueryParameters(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{Method: "GET", Path: "/fleet/info?id=5&name=abc&flag&&ratio=1.5&when=2020-01-01T00:00:00&on=TRUE&x=a=b&n=5=x&e="})
	require.NoError(t, err)

	assert.Equal(t, "fleet", rec.Service)
	assert.Equal(t, "info", rec.Endpoint)
	assert.Equal(t, "GET", rec.Method)
	assert.JSONEq(t, `{
		"id": "int",
		"name": "str",
		"flag": null,
		"ratio": "float",
		"when": "datetime",
		"on": "bool",
		"x": "str",
		"n": "int",
		"e": "str"
	}`, mustJSON(t, rec.QueryParameters))
	assert.Equal(t, 0, rec.ContentStructure.Len())
	assert.Equal(t, contenttype.None, rec.ContentType)
	assert.Equal(t, 0, rec.ResponseStructure.Len())
}

func TestNormalize_XMLRequest(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:      "POST",
		Path:        "/fleet/update",
		RequestBody: []byte(`<ship id="7"><crew count="3"/></ship>`),
	})
	require.NoError(t, err)

	assert.Equal(t, contenttype.XML, rec.ContentType)
	assert.JSONEq(t, `{"ship": {"properties": {"id": "int"}, "crew": {"properties": {"count": "int"}}}}`,
		mustJSON(t, rec.ContentStructure))
	assert.Equal(t, int64(1), n.Stats().RequestXML)
}

func TestNormalize_JSONFallback(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:      "POST",
		Path:        "/fleet/update",
		RequestBody: []byte(`{"id": 5, "meta": {"ok": true}}`),
	})
	require.NoError(t, err)

	assert.Equal(t, contenttype.JSON, rec.ContentType)
	assert.JSONEq(t, `{"id": "int", "meta": {"ok": "bool"}}`, mustJSON(t, rec.ContentStructure))
	assert.Equal(t, int64(1), n.Stats().RequestJSON)
}

func TestNormalize_UnparsedRequest(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:      "POST",
		Path:        "/fleet/update",
		RequestBody: []byte(`a=1&b=2`),
	})
	require.NoError(t, err)

	assert.Equal(t, contenttype.None, rec.ContentType)
	assert.Equal(t, `{}`, mustJSON(t, rec.ContentStructure))
	assert.Equal(t, int64(1), n.Stats().RequestUnparsed)
}

func TestNormalize_GetBodyIgnored(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:      "GET",
		Path:        "/fleet/info",
		RequestBody: []byte(`<a x="1"/>`),
	})
	require.NoError(t, err)

	assert.Equal(t, contenttype.None, rec.ContentType)
	assert.Equal(t, 0, rec.ContentStructure.Len())
}

func TestNormalize_ResponseXMLOnly(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:       "GET",
		Path:         "/fleet/info",
		ResponseBody: []byte(`<r><item v="1.5"/></r>`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r": {"properties": {}, "item": {"properties": {"v": "float"}}}}`,
		mustJSON(t, rec.ResponseStructure))

	rec, err = n.Normalize(&capture.Exchange{
		Method:       "GET",
		Path:         "/fleet/info",
		ResponseBody: []byte(`{"id": 1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ResponseStructure.Len())

	stats := n.Stats()
	assert.Equal(t, int64(1), stats.ResponseXML)
	assert.Equal(t, int64(1), stats.ResponseUnparsed)
	assert.Equal(t, int64(2), stats.Normalized)
}

func TestNormalize_OctetStreamXML(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:              "POST",
		Path:                "/fleet/info",
		RequestContentType:  "application/octet-stream",
		RequestBody:         []byte(`<Req id="5"/>`),
		ResponseContentType: "application/octet-stream",
		ResponseBody:        []byte(`<Resp n="1"/>`),
	})
	require.NoError(t, err)

	assert.Equal(t, contenttype.XML, rec.ContentType)
	assert.Equal(t, 1, rec.ContentStructure.Len())
	assert.Equal(t, 1, rec.ResponseStructure.Len())
	assert.JSONEq(t, `{"Req": {"properties": {"id": "int"}}}`, mustJSON(t, rec.ContentStructure))
	assert.Equal(t, int64(0), n.Stats().Undecodable)
}

func TestNormalize_UndecodableBody(t *testing.T) {
	n := NewNormalizer(nil)

	rec, err := n.Normalize(&capture.Exchange{
		Method:       "POST",
		Path:         "/fleet/update",
		RequestBody:  []byte{0xff, 0xfe, '<', 'a', '/', '>'},
		ResponseBody: []byte{0xc3, 0x28},
	})
	require.NoError(t, err)

	assert.Equal(t, contenttype.None, rec.ContentType)
	assert.Equal(t, 0, rec.ContentStructure.Len())
	assert.Equal(t, 0, rec.ResponseStructure.Len())
	assert.Equal(t, int64(2), n.Stats().Undecodable)
}

func TestNormalize_MalformedPath(t *testing.T) {
	n := NewNormalizer(nil)

	_, err := n.Normalize(&capture.Exchange{Method: "GET", Path: "/only"})
	assert.ErrorIs(t, err, ErrMalformedPath)
	assert.Equal(t, int64(0), n.Stats().Normalized)
}

func TestNormalize_WithCache(t *testing.T) {
	types, err := cache.NewTypeCache(8)
	require.NoError(t, err)
	n := NewNormalizer(types)

	for i := 0; i < 3; i++ {
		rec, err := n.Normalize(&capture.Exchange{Method: "GET", Path: "/fleet/info?id=5"})
		require.NoError(t, err)
		child, ok := rec.QueryParameters.Field("id")
		require.True(t, ok)
		assert.Equal(t, schema.Integer, child.Type())
	}
	assert.Equal(t, 1, types.Len())
}
