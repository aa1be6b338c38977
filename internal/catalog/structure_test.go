package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/pkg/schema"
)

func TestBuild_GroupsAndCounts(t *testing.T) {
	s := Build([]*flow.Record{
		record("ship", "info", "GET"),
		record("fleet", "info", "GET"),
		record("fleet", "info", "POST"),
	})

	assert.Equal(t, 2, s.ServiceCount())
	assert.Equal(t, 2, s.EndpointCount())
	require.Len(t, s.Services, 2)
	assert.Equal(t, "fleet", s.Services[0].Name)
	require.Len(t, s.Services[0].Endpoints, 1)
	assert.Len(t, s.Services[0].Endpoints[0].Records, 2)
	assert.Equal(t, "GET", s.Services[0].Endpoints[0].Records[0].Method)

	rec, ok := s.Record("ship", "info")
	require.True(t, ok)
	assert.Equal(t, "ship", rec.Service)

	_, ok = s.Record("ship", "list")
	assert.False(t, ok)
}

func TestBuild_ConcatenationOrder(t *testing.T) {
	// "a"+"z" sorts after "ab"+"c", so service "a" gains its second endpoint
	// after service "ab" is listed.
	s := Build([]*flow.Record{
		record("a", "z", "GET"),
		record("ab", "c", "GET"),
		record("a", "a", "GET"),
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	empty := `{"method":"GET","query_parameters":{},"content_structure":{},"content_type":"","response_structure":{}}`
	assert.Equal(t, `{"a":{"a":`+empty+`,"z":`+empty+`},"ab":{"c":`+empty+`}}`, string(data))

	var visited []string
	require.NoError(t, s.Walk(func(service, endpoint string, _ *flow.Record) error {
		visited = append(visited, service+"/"+endpoint)
		return nil
	}))
	assert.Equal(t, []string{"a/a", "a/z", "ab/c"}, visited)
}

func TestStructure_MarshalJSON_KeepsServiceOrder(t *testing.T) {
	// "a-b"+"c" < "a"+"z": service a-b is listed first even though "a" < "a-b".
	s := Build([]*flow.Record{
		record("a", "z", "GET"),
		record("a-b", "c", "GET"),
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
	assert.Less(t, strings.Index(string(data), `"a-b":`), strings.Index(string(data), `"a":`))
}

func TestStructure_MarshalYAML(t *testing.T) {
	rec := record("fleet", "info", "GET")
	rec.QueryParameters = schema.Object(map[string]*schema.Node{
		"id":   schema.Leaf(schema.Integer),
		"flag": nil,
	})
	s := Build([]*flow.Record{record("z", "a", "POST"), rec})

	data, err := yaml.Marshal(s)
	require.NoError(t, err)

	want := `fleet:
    info:
        method: GET
        query_parameters:
            flag: null
            id: int
        content_structure: {}
        content_type: ""
        response_structure: {}
z:
    a:
        method: POST
        query_parameters: {}
        content_structure: {}
        content_type: ""
        response_structure: {}
`
	assert.Equal(t, want, string(data))
}

func TestStructure_Empty(t *testing.T) {
	s := Build(nil)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
	assert.Equal(t, 0, s.EndpointCount())
}
