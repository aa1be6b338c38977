// Package prompts contains MCP prompt implementations for flowschema.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	OutputFormat   string
	EmitJSONSchema bool
}
