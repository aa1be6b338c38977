package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "document_api",
		Description: "Document the API seen in a capture file: infers the structure with infer_api_schema and guides the write-up of services, endpoints, and payload types.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "path",
				Description: "Path of the mitmproxy flow file or HAR archive",
				Required:    true,
			},
			{
				Name:        "service",
				Description: "Only document this service",
				Required:    false,
			},
		},
	}, HandleDocumentAPI(cfg))
}
