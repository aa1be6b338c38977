package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PropertiesKey is the reserved child name holding XML attribute types.
const PropertiesKey = "properties"

// Node is an immutable schema tree node: either a leaf carrying an inferred
// Type, or an object mapping field names to child nodes.
//
// A nil *Node stored as an object child is the "no type" marker (a query key
// seen without a value). It encodes as JSON null.
type Node struct {
	typ    Type
	fields map[string]*Node // non-nil for objects
}

// Leaf returns a leaf node of the given type.
func Leaf(t Type) *Node {
	return &Node{typ: t}
}

// Object returns an object node with a copy of fields. A nil map yields an
// empty object.
func Object(fields map[string]*Node) *Node {
	copied := make(map[string]*Node, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Node{fields: copied}
}

// Empty returns an object node without fields.
func Empty() *Node {
	return &Node{fields: map[string]*Node{}}
}

// IsObject reports whether n is an object node.
func (n *Node) IsObject() bool {
	return n != nil && n.fields != nil
}

// IsLeaf reports whether n is a leaf node.
func (n *Node) IsLeaf() bool {
	return n != nil && n.fields == nil
}

// Type returns the leaf type. Objects and nil report String.
func (n *Node) Type() Type {
	if n == nil {
		return String
	}
	return n.typ
}

// Len returns the number of fields of an object node.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.fields)
}

// Field returns the child stored under name and whether it exists.
// The child may be nil when the key carries the no-type marker.
func (n *Node) Field(name string) (*Node, bool) {
	if !n.IsObject() {
		return nil, false
	}
	child, ok := n.fields[name]
	return child, ok
}

// Keys returns the sorted field names of an object node.
func (n *Node) Keys() []string {
	if !n.IsObject() {
		return nil
	}
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether a and b describe the same schema.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.IsObject() != b.IsObject() {
		return false
	}
	if !a.IsObject() {
		return a.typ == b.typ
	}
	if len(a.fields) != len(b.fields) {
		return false
	}
	for k, av := range a.fields {
		bv, ok := b.fields[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes leaves as their wire token and objects as JSON objects
// with sorted keys.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	if !n.IsObject() {
		return json.Marshal(n.typ.Wire())
	}
	return json.Marshal(n.fields)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty schema node")
	}
	switch data[0] {
	case '"':
		var tok string
		if err := json.Unmarshal(data, &tok); err != nil {
			return err
		}
		t, ok := ParseType(tok)
		if !ok {
			return fmt.Errorf("unknown type %q", tok)
		}
		*n = Node{typ: t}
		return nil
	case '{':
		var fields map[string]*Node
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		if fields == nil {
			fields = map[string]*Node{}
		}
		*n = Node{fields: fields}
		return nil
	default:
		return fmt.Errorf("schema node must be a string or object, got %s", data)
	}
}

// MarshalYAML encodes leaves as their wire token and objects as mappings.
func (n *Node) MarshalYAML() (any, error) {
	if n == nil {
		return nil, nil
	}
	if !n.IsObject() {
		return n.typ.Wire(), nil
	}
	return n.fields, nil
}
