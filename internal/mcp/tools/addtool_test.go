package tools

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOutputSchema_ToolOutputs(t *testing.T) {
	assert.NotPanics(t, func() { CheckOutputSchema[InferOutput]("infer_api_schema") })
	assert.NotPanics(t, func() { CheckOutputSchema[ClassifyOutput]("classify_value") })
	assert.NotPanics(t, func() { CheckOutputSchema[any]("untyped") })
}

func TestCheckOutputSchema_Rejects(t *testing.T) {
	type inner struct {
		Schema json.RawMessage `json:"schema,omitempty"`
	}
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"nil slice", reflect.TypeFor[struct {
			Written []string `json:"written"`
		}]()},
		{"raw message", reflect.TypeFor[struct {
			Structure json.RawMessage `json:"structure,omitempty"`
		}]()},
		{"raw message slice", reflect.TypeFor[struct {
			Bodies []json.RawMessage `json:"bodies,omitzero"`
		}]()},
		{"nested raw message", reflect.TypeFor[struct {
			Endpoint inner `json:"endpoint"`
		}]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, outputSchemaError(tt.typ))
		})
	}
}

func TestCheckOutputSchema_Accepts(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"omitzero slice", reflect.TypeFor[struct {
			Written []string `json:"written,omitzero"`
		}]()},
		{"omitempty slice", reflect.TypeFor[struct {
			Written []string `json:"written,omitempty"`
		}]()},
		{"scalars", reflect.TypeFor[struct {
			Type       string `json:"type"`
			Precedence int    `json:"precedence"`
		}]()},
		{"pointer to slice", reflect.TypeFor[struct {
			Written *[]string `json:"written"`
		}]()},
		{"any slice", reflect.TypeFor[struct {
			Values []any `json:"values,omitzero"`
		}]()},
		{"pointer output", reflect.TypeFor[*ClassifyOutput]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, outputSchemaError(tt.typ))
		})
	}
}

func TestRawMessagePaths(t *testing.T) {
	type leaf struct {
		Raw json.RawMessage
	}
	type root struct {
		Direct json.RawMessage
		List   []json.RawMessage
		ByName map[string]leaf
		Ptr    *leaf
		hidden json.RawMessage
	}

	paths := rawMessagePaths(reflect.TypeFor[root](), "", map[reflect.Type]bool{})
	assert.Equal(t, []string{"Direct", "List.[]", "ByName.[value].Raw", "Ptr.Raw"}, paths)
}
