package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "infer_api_schema",
		Description: "Infer the API structure of a captured traffic file (mitmproxy flows or HAR). Returns {result_id, summary: {flows, filtered, skipped, records, services, endpoints, bodies}, structure, written, hint}. The structure maps service -> endpoint -> {method, query_parameters, content_structure, content_type, response_structure} with leaf types str, datetime, bool, int, float. Set write_output=true to also persist it next to the capture. Use filter to restrict flows with a jq predicate.",
	}, ToolInferAPISchema(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "classify_value",
		Description: "Classify a raw value the way infer_api_schema does. Returns {type, name, precedence, merged}. Pass others to see which type a field with those samples generalizes to (float > int > bool > datetime > str).",
	}, ToolClassifyValue(d))
}
