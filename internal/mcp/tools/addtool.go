package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool after CheckOutputSchema accepts its output type.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	CheckOutputSchema[Out](t.Name)
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema panics when results of type T would be rejected by the
// output schema the SDK infers from T.
func CheckOutputSchema[T any](toolName string) {
	if err := outputSchemaError(reflect.TypeFor[T]()); err != nil {
		panic(fmt.Sprintf("tool %q: %v", toolName, err))
	}
}

var (
	anyType        = reflect.TypeFor[any]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
)

// outputSchemaError reports the two known mismatches: json.RawMessage
// fields, inferred as integer arrays, and zero values that fail the schema,
// typically nil slices marshalled as null. Schema inference failures are
// left for the SDK to report.
func outputSchemaError(rt reflect.Type) error {
	if rt == anyType {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if paths := rawMessagePaths(rt, "", map[reflect.Type]bool{}); len(paths) > 0 {
		return fmt.Errorf("output type %s holds json.RawMessage at %s; declare the field as any and fill it with ToAny",
			rt, strings.Join(paths, ", "))
	}

	inferred, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return nil
	}
	resolved, err := inferred.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil
	}

	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return nil
	}
	var zero map[string]any
	if err := json.Unmarshal(data, &zero); err != nil {
		return nil
	}
	if err := resolved.Validate(&zero); err != nil {
		return fmt.Errorf("zero value of %s fails its output schema: %w (got %s); tag nil-defaulting slices and maps omitzero",
			rt, err, data)
	}
	return nil
}

// rawMessagePaths lists the dotted paths of json.RawMessage values reachable
// from t. Slice elements and map values add "[]" and "[value]" segments.
func rawMessagePaths(t reflect.Type, path string, seen map[reflect.Type]bool) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == rawMessageType {
		return []string{path}
	}
	if seen[t] {
		return nil
	}
	seen[t] = true
	defer delete(seen, t)

	join := func(seg string) string {
		if path == "" {
			return seg
		}
		return path + "." + seg
	}

	var out []string
	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() {
				out = append(out, rawMessagePaths(f.Type, join(f.Name), seen)...)
			}
		}
	case reflect.Slice, reflect.Array:
		out = rawMessagePaths(t.Elem(), join("[]"), seen)
	case reflect.Map:
		out = rawMessagePaths(t.Elem(), join("[value]"), seen)
	}
	return out
}
