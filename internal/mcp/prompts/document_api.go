package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleDocumentAPI implements the API documentation workflow.
func HandleDocumentAPI(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments

		path := strings.TrimSpace(args["path"])
		if path == "" {
			return nil, errors.New("path argument is required")
		}
		service := strings.TrimSpace(args["service"])

		var sb strings.Builder

		sb.WriteString("# Document an API from Captured Traffic\n\n")
		sb.WriteString("You are documenting an HTTP API from recorded traffic. ")
		sb.WriteString("The types you report come from sampled values, so describe them as observed, not guaranteed.\n\n")

		sb.WriteString("## Workflow Steps\n\n")
		sb.WriteString("1. **Infer the structure** of the capture\n")
		sb.WriteString("```\n")
		if service != "" {
			sb.WriteString(fmt.Sprintf("infer_api_schema(path=%q, filter=%q)\n", path, fmt.Sprintf(`.path | startswith("/%s/")`, service)))
		} else {
			sb.WriteString(fmt.Sprintf("infer_api_schema(path=%q)\n", path))
		}
		sb.WriteString("```\n")
		sb.WriteString("2. **Check the summary** before reading the structure\n")
		sb.WriteString("   - `skipped` > 0 means some request paths were not `/service/endpoint`\n")
		sb.WriteString("   - `bodies.request_unparsed` counts request bodies that were neither XML nor JSON\n")
		sb.WriteString("3. **Walk the structure** service by service\n")
		sb.WriteString("   - `query_parameters` lists every key seen; `null` means the key appeared without a value\n")
		sb.WriteString("   - `content_structure` is the request body; `content_type` tells whether it was XML or JSON\n")
		sb.WriteString("   - XML elements carry their attributes under `properties`\n")
		sb.WriteString("   - `response_structure` is only filled for XML responses\n")
		if cfg.EmitJSONSchema {
			sb.WriteString("4. **Fetch JSON Schemas** with `flowschema://schema/{result_id}` when a machine-readable contract is needed\n")
			sb.WriteString("5. **Fetch the OpenAPI document** with `flowschema://openapi/{result_id}` to hand the API to OpenAPI tooling\n")
		} else {
			sb.WriteString("4. **Fetch the OpenAPI document** with `flowschema://openapi/{result_id}` when a machine-readable contract is needed\n")
		}
		sb.WriteString("\n")

		sb.WriteString("## Type Tokens\n\n")
		sb.WriteString("| Token | Meaning |\n")
		sb.WriteString("|-------|---------|\n")
		sb.WriteString("| `float` | decimal number in at least one sample |\n")
		sb.WriteString("| `int` | integer in at least one sample, never a decimal |\n")
		sb.WriteString("| `bool` | `true` or `false`, any case |\n")
		sb.WriteString("| `datetime` | `YYYY-MM-DDTHH:MM:SS` with optional fraction |\n")
		sb.WriteString("| `str` | anything else |\n\n")
		sb.WriteString("A field takes the highest-ranked type among its samples, so an `int` field may also have carried text.\n")
		sb.WriteString("Use `classify_value` to check how a specific literal is read.\n\n")

		sb.WriteString("## Expected Output Format\n\n")
		sb.WriteString("1. **Overview**: services, endpoint counts, flows analyzed\n")
		sb.WriteString("2. **Endpoint Catalog**: per endpoint the method, query parameters, request body, and response body with types\n")
		sb.WriteString("3. **Caveats**: skipped flows, unparsed bodies, and fields whose type was widened\n\n")

		sb.WriteString("## Constraints\n\n")
		sb.WriteString("- Do NOT invent fields that are not in the structure\n")
		sb.WriteString(fmt.Sprintf("- Only call infer_api_schema with write_output=true if the user asks for a file (format: %s)\n", cfg.OutputFormat))

		return &sdkmcp.GetPromptResult{
			Description: "Guide for documenting an API from a capture file",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
