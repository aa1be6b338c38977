// Package schema provides the inferred type lattice, the immutable schema tree,
// and the precedence merge that generalizes many samples into one schema.
package schema

import "fmt"

// Type is an inferred scalar type.
type Type uint8

// Inferred scalar types. The zero value is String, the weakest type.
const (
	String Type = iota
	DateTime
	Boolean
	Integer
	Float
)

// wireNames are the persisted tokens read by downstream client generators.
var wireNames = [...]string{
	String:   "str",
	DateTime: "datetime",
	Boolean:  "bool",
	Integer:  "int",
	Float:    "float",
}

var longNames = [...]string{
	String:   "string",
	DateTime: "datetime",
	Boolean:  "boolean",
	Integer:  "integer",
	Float:    "float",
}

// Precedence returns the rank used to resolve merge conflicts:
// float(4) > integer(3) > boolean(2) > datetime(1) > string(0).
//
// The order is fixed and intentionally ranks datetime below boolean.
func (t Type) Precedence() int {
	switch t {
	case Float:
		return 4
	case Integer:
		return 3
	case Boolean:
		return 2
	case DateTime:
		return 1
	default:
		return 0
	}
}

// String returns the long name of the type (e.g. "integer").
func (t Type) String() string {
	if int(t) < len(longNames) {
		return longNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Wire returns the persisted token of the type (e.g. "int").
func (t Type) Wire() string {
	if int(t) < len(wireNames) {
		return wireNames[t]
	}
	return "str"
}

// MarshalText encodes the type as its wire token.
func (t Type) MarshalText() ([]byte, error) {
	if int(t) >= len(wireNames) {
		return nil, fmt.Errorf("unknown type %d", uint8(t))
	}
	return []byte(wireNames[t]), nil
}

// UnmarshalText accepts both wire tokens and long names.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown type %q", b)
	}
	*t = parsed
	return nil
}

// ParseType resolves a wire token or long name to a Type.
func ParseType(s string) (Type, bool) {
	for i := range wireNames {
		if s == wireNames[i] || s == longNames[i] {
			return Type(i), true
		}
	}
	return String, false
}

// Max returns whichever of a and b has the higher precedence.
// On a tie a is returned.
func Max(a, b Type) Type {
	if b.Precedence() > a.Precedence() {
		return b
	}
	return a
}
