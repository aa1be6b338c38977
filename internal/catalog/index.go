// Package catalog groups normalized records by service and endpoint and
// arranges them into the ordered output structure.
package catalog

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/usestring/flowschema/internal/flow"
)

// Index assigns each added record a position and keeps posting lists of
// positions per service and per endpoint name. A group is the intersection
// of its service and endpoint lists, so iterating it yields arrival order.
//
// Index is not safe for concurrent use.
type Index struct {
	records []*flow.Record

	idxService  map[string]*roaring.Bitmap
	idxEndpoint map[string]*roaring.Bitmap

	// keys in first-seen order
	keys []GroupKey
	seen map[GroupKey]struct{}
}

// GroupKey identifies one endpoint of one service.
type GroupKey struct {
	Service  string
	Endpoint string
}

// Group is the set of records observed for one endpoint, in arrival order.
type Group struct {
	GroupKey
	Records []*flow.Record
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		idxService:  make(map[string]*roaring.Bitmap),
		idxEndpoint: make(map[string]*roaring.Bitmap),
		seen:        make(map[GroupKey]struct{}),
	}
}

// Add appends rec and returns its position.
func (x *Index) Add(rec *flow.Record) uint32 {
	pos := uint32(len(x.records))
	x.records = append(x.records, rec)

	addToIndex(x.idxService, rec.Service, pos)
	addToIndex(x.idxEndpoint, rec.Endpoint, pos)

	key := GroupKey{Service: rec.Service, Endpoint: rec.Endpoint}
	if _, ok := x.seen[key]; !ok {
		x.seen[key] = struct{}{}
		x.keys = append(x.keys, key)
	}
	return pos
}

// AddAll appends every record in order.
func (x *Index) AddAll(records []*flow.Record) {
	for _, rec := range records {
		x.Add(rec)
	}
}

func addToIndex(idx map[string]*roaring.Bitmap, key string, pos uint32) {
	bm, ok := idx[key]
	if !ok {
		bm = roaring.New()
		idx[key] = bm
	}
	bm.Add(pos)
}

// Len returns the number of records added.
func (x *Index) Len() int {
	return len(x.records)
}

// ServiceCount returns the number of distinct services.
func (x *Index) ServiceCount() int {
	return len(x.idxService)
}

// GroupCount returns the number of distinct (service, endpoint) pairs.
func (x *Index) GroupCount() int {
	return len(x.keys)
}

// Positions returns the record positions of one group.
func (x *Index) Positions(key GroupKey) *roaring.Bitmap {
	services, ok := x.idxService[key.Service]
	if !ok {
		return roaring.New()
	}
	endpoints, ok := x.idxEndpoint[key.Endpoint]
	if !ok {
		return roaring.New()
	}
	return roaring.And(services, endpoints)
}

// Lookup returns the records of one group in arrival order.
func (x *Index) Lookup(key GroupKey) []*flow.Record {
	positions := x.Positions(key)
	records := make([]*flow.Record, 0, positions.GetCardinality())
	iter := positions.Iterator()
	for iter.HasNext() {
		records = append(records, x.records[iter.Next()])
	}
	return records
}

// Groups returns every group ordered by service+endpoint. Keys that
// concatenate to the same string keep first-seen order.
func (x *Index) Groups() []Group {
	keys := make([]GroupKey, len(x.keys))
	copy(keys, x.keys)
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Service+keys[i].Endpoint < keys[j].Service+keys[j].Endpoint
	})

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, Group{GroupKey: key, Records: x.Lookup(key)})
	}
	return groups
}
