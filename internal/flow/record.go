// Package flow turns captured exchanges into normalized endpoint records and
// merges records observed for the same endpoint.
package flow

import (
	"github.com/usestring/flowschema/pkg/contenttype"
	"github.com/usestring/flowschema/pkg/schema"
)

// Record is the normalized description of one endpoint, built from one
// exchange or merged from several.
//
// The three structure fields are always object nodes, possibly empty.
// Service and Endpoint are the grouping key and are not persisted; they are
// the keys of the enclosing output maps.
type Record struct {
	Service  string `json:"-" yaml:"-"`
	Endpoint string `json:"-" yaml:"-"`

	Method            string               `json:"method" yaml:"method"`
	QueryParameters   *schema.Node         `json:"query_parameters" yaml:"query_parameters"`
	ContentStructure  *schema.Node         `json:"content_structure" yaml:"content_structure"`
	ContentType       contenttype.Encoding `json:"content_type" yaml:"content_type"`
	ResponseStructure *schema.Node         `json:"response_structure" yaml:"response_structure"`
}

// Key returns the grouping key of the record. Ordering by Key gives the
// output order: service and endpoint concatenated without a separator.
func (r *Record) Key() string {
	return r.Service + r.Endpoint
}

// MergeRecords combines two records of the same endpoint into a new one.
// Service, Endpoint, Method and ContentType come from a unchanged; the
// structure fields are merged with schema.Merge.
func MergeRecords(a, b *Record) *Record {
	return &Record{
		Service:           a.Service,
		Endpoint:          a.Endpoint,
		Method:            a.Method,
		QueryParameters:   objectOrEmpty(schema.Merge(a.QueryParameters, b.QueryParameters)),
		ContentStructure:  objectOrEmpty(schema.Merge(a.ContentStructure, b.ContentStructure)),
		ContentType:       a.ContentType,
		ResponseStructure: objectOrEmpty(schema.Merge(a.ResponseStructure, b.ResponseStructure)),
	}
}

// objectOrEmpty keeps structure fields as objects even when a record was
// built by hand with nil fields.
func objectOrEmpty(n *schema.Node) *schema.Node {
	if n == nil || !n.IsObject() {
		return schema.Empty()
	}
	return n
}
