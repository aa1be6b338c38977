package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/pkg/schema"
)

func record(service, endpoint, method string) *flow.Record {
	return &flow.Record{
		Service:           service,
		Endpoint:          endpoint,
		Method:            method,
		QueryParameters:   schema.Empty(),
		ContentStructure:  schema.Empty(),
		ResponseStructure: schema.Empty(),
	}
}

func TestIndex_GroupsPreserveArrivalOrder(t *testing.T) {
	idx := NewIndex()
	r1 := record("fleet", "info", "GET")
	r2 := record("ship", "info", "GET")
	r3 := record("fleet", "info", "POST")
	r4 := record("fleet", "list", "GET")
	idx.AddAll([]*flow.Record{r1, r2, r3, r4})

	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 2, idx.ServiceCount())
	assert.Equal(t, 3, idx.GroupCount())

	groups := idx.Groups()
	require.Len(t, groups, 3)

	assert.Equal(t, GroupKey{Service: "fleet", Endpoint: "info"}, groups[0].GroupKey)
	assert.Equal(t, []*flow.Record{r1, r3}, groups[0].Records)
	assert.Equal(t, GroupKey{Service: "fleet", Endpoint: "list"}, groups[1].GroupKey)
	assert.Equal(t, GroupKey{Service: "ship", Endpoint: "info"}, groups[2].GroupKey)
	assert.Equal(t, []*flow.Record{r2}, groups[2].Records)
}

func TestIndex_Positions(t *testing.T) {
	idx := NewIndex()
	assert.Equal(t, uint32(0), idx.Add(record("a", "x", "GET")))
	assert.Equal(t, uint32(1), idx.Add(record("b", "x", "GET")))
	assert.Equal(t, uint32(2), idx.Add(record("a", "x", "GET")))

	assert.Equal(t, []uint32{0, 2}, idx.Positions(GroupKey{Service: "a", Endpoint: "x"}).ToArray())
	assert.True(t, idx.Positions(GroupKey{Service: "a", Endpoint: "y"}).IsEmpty())
	assert.True(t, idx.Positions(GroupKey{Service: "c", Endpoint: "x"}).IsEmpty())
	assert.Empty(t, idx.Lookup(GroupKey{Service: "b", Endpoint: "y"}))
}

func TestIndex_ConcatenatedKeyTiesKeepFirstSeen(t *testing.T) {
	idx := NewIndex()
	idx.Add(record("ab", "c", "GET"))
	idx.Add(record("a", "bc", "GET"))

	groups := idx.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "ab", groups[0].Service)
	assert.Equal(t, "a", groups[1].Service)
}
