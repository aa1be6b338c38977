package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/internal/mcp/tools"
)

// AddTool is sdkmcp.AddTool with the output check the builtin tools get:
// it panics at registration when a zero Out would fail its inferred schema,
// as a nil slice without omitzero does.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
