package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/pkg/schema"
)

// ClassifyInput is the input for classify_value.
type ClassifyInput struct {
	Value  string   `json:"value" jsonschema:"Raw text of a query parameter, XML attribute, or JSON scalar"`
	Others []string `json:"others,omitempty" jsonschema:"More samples of the same field. When set, merged reports the type the field generalizes to."`
}

// ClassifyOutput is the output of classify_value.
type ClassifyOutput struct {
	Type       string `json:"type" jsonschema:"Wire token: str, datetime, bool, int, or float"`
	Name       string `json:"name"`
	Precedence int    `json:"precedence" jsonschema:"Merge rank; the higher rank wins"`
	Merged     string `json:"merged,omitempty"`
}

// ToolClassifyValue reports the lattice type of a single value.
func ToolClassifyValue(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ClassifyInput) (*sdkmcp.CallToolResult, ClassifyOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ClassifyInput) (*sdkmcp.CallToolResult, ClassifyOutput, error) {
		t := d.Options.Types.Classify(input.Value)
		out := ClassifyOutput{
			Type:       t.Wire(),
			Name:       t.String(),
			Precedence: t.Precedence(),
		}

		if len(input.Others) > 0 {
			nodes := []*schema.Node{schema.Leaf(t)}
			for _, v := range input.Others {
				nodes = append(nodes, schema.Leaf(d.Options.Types.Classify(v)))
			}
			out.Merged = schema.MergeAll(nodes...).Type().Wire()
		}

		return nil, out, nil
	}
}
