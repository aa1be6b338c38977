package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/flowschema/internal/capture"
	"github.com/usestring/flowschema/pkg/contenttype"
	"github.com/usestring/flowschema/pkg/schema"
)

func normalize(t *testing.T, ex capture.Exchange) *Record {
	t.Helper()
	rec, err := NewNormalizer(nil).Normalize(&ex)
	require.NoError(t, err)
	return rec
}

func TestMergeRecords_QueryTypes(t *testing.T) {
	a := normalize(t, capture.Exchange{Method: "GET", Path: "/fleet/info?id=5"})
	b := normalize(t, capture.Exchange{Method: "GET", Path: "/fleet/info?id=abc"})

	for _, merged := range []*Record{MergeRecords(a, b), MergeRecords(b, a)} {
		id, ok := merged.QueryParameters.Field("id")
		require.True(t, ok)
		assert.Equal(t, schema.Integer, id.Type())
	}
}

func TestMergeRecords_FirstWinsScalars(t *testing.T) {
	a := normalize(t, capture.Exchange{Method: "POST", Path: "/fleet/update", RequestBody: []byte(`<u a="1"/>`)})
	b := normalize(t, capture.Exchange{Method: "PUT", Path: "/fleet/update", RequestBody: []byte(`{"x": 1}`)})

	merged := MergeRecords(a, b)
	assert.Equal(t, "fleet", merged.Service)
	assert.Equal(t, "update", merged.Endpoint)
	assert.Equal(t, "POST", merged.Method)
	assert.Equal(t, contenttype.XML, merged.ContentType)
}

func TestMergeRecords_MissingFieldsAndMarker(t *testing.T) {
	a := normalize(t, capture.Exchange{Method: "GET", Path: "/fleet/info?flag&n=1"})
	b := normalize(t, capture.Exchange{Method: "GET", Path: "/fleet/info?flag=true"})

	merged := MergeRecords(a, b)
	assert.JSONEq(t, `{"flag": "bool", "n": "int"}`, mustJSON(t, merged.QueryParameters))

	c := normalize(t, capture.Exchange{Method: "GET", Path: "/fleet/info?flag"})
	assert.JSONEq(t, `{"flag": null}`, mustJSON(t, MergeRecords(c, c).QueryParameters))
}

func TestMergeRecords_ResponseStructures(t *testing.T) {
	a := normalize(t, capture.Exchange{Method: "GET", Path: "/s/e", ResponseBody: []byte(`<r><a x="1"/></r>`)})
	b := normalize(t, capture.Exchange{Method: "GET", Path: "/s/e", ResponseBody: []byte(`<r><a x="2.5" y="true"/><b/></r>`)})

	merged := MergeRecords(a, b)
	assert.JSONEq(t, `{"r": {
		"properties": {},
		"a": {"properties": {"x": "float", "y": "bool"}},
		"b": {"properties": {}}
	}}`, mustJSON(t, merged.ResponseStructure))
}

func TestMergeRecords_Idempotent(t *testing.T) {
	a := normalize(t, capture.Exchange{
		Method:       "POST",
		Path:         "/fleet/update?id=5&flag",
		RequestBody:  []byte(`<u a="1"><c/></u>`),
		ResponseBody: []byte(`<r ok="true"/>`),
	})

	merged := MergeRecords(a, a)
	assert.Equal(t, mustJSON(t, a), mustJSON(t, merged))
}

func TestRecord_JSONFields(t *testing.T) {
	rec := normalize(t, capture.Exchange{Method: "GET", Path: "/fleet/info"})

	assert.JSONEq(t, `{
		"method": "GET",
		"query_parameters": {},
		"content_structure": {},
		"content_type": "",
		"response_structure": {}
	}`, mustJSON(t, rec))
	assert.Equal(t, "fleetinfo", rec.Key())
}

func TestMergeRecords_NilStructures(t *testing.T) {
	a := &Record{Service: "s", Endpoint: "e", Method: "GET"}
	b := &Record{Service: "s", Endpoint: "e", Method: "GET", QueryParameters: schema.Object(map[string]*schema.Node{
		"id": schema.Leaf(schema.Integer),
	})}

	merged := MergeRecords(a, b)
	assert.JSONEq(t, `{"id": "int"}`, mustJSON(t, merged.QueryParameters))
	assert.True(t, merged.ContentStructure.IsObject())
	assert.True(t, merged.ResponseStructure.IsObject())
}
