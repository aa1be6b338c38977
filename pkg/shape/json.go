package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/usestring/flowschema/pkg/schema"
)

// ErrNotJSONObject is returned when a JSON body is valid but its top-level
// value is a non-empty array or a scalar.
var ErrNotJSONObject = errors.New("json document is not an object")

// ExtractJSON parses a JSON body and returns its structure. Nested objects
// recurse; every other value is classified as a leaf through the same
// coercion attempts used for textual values. An empty body, null, {} or []
// yields an empty object.
func ExtractJSON(body []byte, classify Classifier) (*schema.Node, error) {
	if classify == nil {
		classify = schema.Classify
	}
	if len(body) == 0 {
		return schema.Empty(), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("parsing JSON: invalid document")
	}

	value, dataType, _, err := jsonparser.Get(body)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	switch dataType {
	case jsonparser.Object:
		return extractObject(value, classify)
	case jsonparser.Null:
		return schema.Empty(), nil
	case jsonparser.Array:
		if isEmptyArray(value) {
			return schema.Empty(), nil
		}
		return nil, fmt.Errorf("%w: top-level array", ErrNotJSONObject)
	default:
		return nil, fmt.Errorf("%w: top-level %s", ErrNotJSONObject, dataType)
	}
}

func extractObject(data []byte, classify Classifier) (*schema.Node, error) {
	fields := make(map[string]*schema.Node)

	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		// ObjectEach hands over keys already unescaped.
		name := string(key)

		if dataType == jsonparser.Object {
			child, err := extractObject(value, classify)
			if err != nil {
				return err
			}
			fields[name] = child
			return nil
		}

		leaf, err := classifyJSONValue(value, dataType, classify)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = leaf
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing JSON object: %w", err)
	}

	return schema.Object(fields), nil
}

// classifyJSONValue coerces a native JSON scalar to its literal text and
// classifies it, so true is Boolean, 0 is Integer and 1.5 is Float. Arrays
// have no scalar form and classify as String.
func classifyJSONValue(value []byte, dataType jsonparser.ValueType, classify Classifier) (*schema.Node, error) {
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, err
		}
		return schema.Leaf(classify(s)), nil
	case jsonparser.Number, jsonparser.Boolean:
		// Literal text: 5 -> "5", 1.5 -> "1.5", true -> "true".
		return schema.Leaf(classify(string(value))), nil
	default:
		// Null and arrays.
		return schema.Leaf(schema.String), nil
	}
}

// isEmptyArray expects a validated array literal including its brackets.
func isEmptyArray(value []byte) bool {
	if len(value) < 2 {
		return false
	}
	return len(bytes.TrimSpace(value[1:len(value)-1])) == 0
}
