// Package mcpsrv provides an extensible MCP server for flowschema.
//
// The server exposes the inference pipeline as the infer_api_schema and
// classify_value tools, the structure, JSON Schema and OpenAPI resources of
// earlier results, and a documentation prompt.
//
// # Basic Usage
//
//	server, err := mcpsrv.NewServer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Custom tools use MCP SDK types directly and are registered with WithTool,
// or with WithDepsTool when they need the configured pipeline or results
// stored by earlier infer_api_schema calls (Deps.Result).
//
// # Configuration
//
// Settings come from the environment (see internal/config). Logging can be
// overridden per server:
//
//	server, err := mcpsrv.NewServer(
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/flowschema-mcp.log"),
//	)
package mcpsrv
