// Package tools contains MCP tool implementations for flowschema.
package tools

import (
	"encoding/json"
	"fmt"
)

// MIME type constant.
const MimeJSON = "application/json"

// ToAny round-trips v through JSON so it can be placed in an output field
// typed any. Output schemas are inferred from Go types, and the schema tree
// has no static shape.
func ToAny(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding output: %w", err)
	}
	return out, nil
}
