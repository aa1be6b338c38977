package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/internal/flow"
)

// InferInput is the input for infer_api_schema.
type InferInput struct {
	Path        string `json:"path" jsonschema:"Path of a mitmproxy flow file or HAR archive on the server host"`
	WriteOutput bool   `json:"write_output,omitempty" jsonschema:"Also write the structure next to the capture (default: false)"`
	Filter      string `json:"filter,omitempty" jsonschema:"jq predicate over {method, host, path, status} selecting the flows to use. Overrides FLOW_FILTER."`
}

// InferSummary reports how many flows each stage kept.
type InferSummary struct {
	Flows     int `json:"flows"`
	Filtered  int `json:"filtered"`
	Skipped   int `json:"skipped"`
	Records   int `json:"records"`
	Services  int `json:"services"`
	Endpoints int `json:"endpoints"`

	Bodies flow.StatsSnapshot `json:"bodies"`
}

// InferOutput is the output of infer_api_schema.
type InferOutput struct {
	ResultID  string       `json:"result_id"`
	Summary   InferSummary `json:"summary"`
	Structure any          `json:"structure,omitempty" jsonschema:"service -> endpoint -> {method, query_parameters, content_structure, content_type, response_structure}"`
	Written   []string     `json:"written,omitzero"`
	Hint      string       `json:"hint"`
}

// ToolInferAPISchema runs the pipeline over a capture file and returns the
// inferred structure. The structure is kept in the result store for the
// structure and schema resources.
func ToolInferAPISchema(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input InferInput) (*sdkmcp.CallToolResult, InferOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input InferInput) (*sdkmcp.CallToolResult, InferOutput, error) {
		path := strings.TrimSpace(input.Path)
		if path == "" {
			return nil, InferOutput{}, ErrInvalidInput("path is required")
		}

		p, err := d.Pipeline(input.Filter)
		if err != nil {
			return nil, InferOutput{}, err
		}

		res, err := p.RunFile(ctx, path)
		if err != nil {
			return nil, InferOutput{}, WrapPipelineError(err)
		}

		var written []string
		if input.WriteOutput {
			written, err = d.Writer.Write(path, res.Structure)
			if err != nil {
				return nil, InferOutput{}, WrapPipelineError(err)
			}
		}

		structure, err := ToAny(res.Structure)
		if err != nil {
			return nil, InferOutput{}, err
		}

		id := ResultID(path)
		d.Results.Put(id, res.Structure)

		return nil, InferOutput{
			ResultID: id,
			Summary: InferSummary{
				Flows:     res.Flows,
				Filtered:  res.Filtered,
				Skipped:   res.Skipped,
				Records:   res.Records,
				Services:  res.Services,
				Endpoints: res.Endpoints,
				Bodies:    res.Stats,
			},
			Structure: structure,
			Written:   written,
			Hint: fmt.Sprintf("Read flowschema://structure/%s for the structure in output order, "+
				"flowschema://schema/%s for JSON Schema per endpoint, "+
				"or flowschema://openapi/%s for an OpenAPI document.", id, id, id),
		}, nil
	}
}
