// Package jsonschema exports inferred schema trees as JSON Schema Draft 2020-12.
package jsonschema

import (
	"github.com/invopop/jsonschema"

	"github.com/usestring/flowschema/pkg/schema"
)

// dateTimePattern matches the datetime layouts recognized by schema.Classify.
// The format keyword is not used: "date-time" requires a zone offset.
const dateTimePattern = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,6})?$`

// FromNode converts a schema tree into a JSON Schema describing decoded
// values. Leaves map to their JSON type, objects list their fields as
// properties in sorted order, and the no-type marker becomes an empty schema
// that accepts anything.
//
// Fields are never required: a schema built from samples cannot tell an
// optional field from one that was merely absent.
func FromNode(n *schema.Node) *jsonschema.Schema {
	if n == nil {
		return &jsonschema.Schema{}
	}
	if n.IsLeaf() {
		return leafSchema(n.Type())
	}

	s := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, name := range n.Keys() {
		child, _ := n.Field(name)
		s.Properties.Set(name, FromNode(child))
	}
	return s
}

func leafSchema(t schema.Type) *jsonschema.Schema {
	switch t {
	case schema.Float:
		return &jsonschema.Schema{Type: "number"}
	case schema.Integer:
		return &jsonschema.Schema{Type: "integer"}
	case schema.Boolean:
		return &jsonschema.Schema{Type: "boolean"}
	case schema.DateTime:
		return &jsonschema.Schema{Type: "string", Pattern: dateTimePattern}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// Document converts n into a standalone schema carrying the $schema keyword.
func Document(n *schema.Node) *jsonschema.Schema {
	s := FromNode(n)
	s.Version = jsonschema.Version
	return s
}

// Endpoint holds the exported schemas of one endpoint record.
type Endpoint struct {
	QueryParameters   *jsonschema.Schema `json:"query_parameters"`
	ContentStructure  *jsonschema.Schema `json:"content_structure"`
	ResponseStructure *jsonschema.Schema `json:"response_structure"`
}

// ForEndpoint exports the three structures of an endpoint record.
func ForEndpoint(query, content, response *schema.Node) *Endpoint {
	return &Endpoint{
		QueryParameters:   Document(query),
		ContentStructure:  Document(content),
		ResponseStructure: Document(response),
	}
}
