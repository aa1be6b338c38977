package mcpsrv

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/internal/config"
)

// registration adds one custom tool, prompt or resource once Deps exist.
type registration func(*mcp.Server, *Deps)

type settings struct {
	config   *config.Config
	logLevel string
	logFile  string

	noBuiltinTools   bool
	noBuiltinPrompts bool

	// Kept as closures so custom tools retain their In/Out type parameters.
	registrations []registration
}

// Option configures NewServer.
type Option func(*settings)

// WithConfig uses c instead of the configuration loaded from the environment.
func WithConfig(c *config.Config) Option {
	return func(s *settings) { s.config = c }
}

// WithLogLevel overrides LOG_LEVEL (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(s *settings) { s.logLevel = level }
}

// WithLogFile overrides LOG_FILE. Logs rotate through lumberjack.
func WithLogFile(path string) Option {
	return func(s *settings) { s.logFile = path }
}

// WithoutBuiltinTools leaves out infer_api_schema, classify_value and the
// flowschema:// resources.
func WithoutBuiltinTools() Option {
	return func(s *settings) { s.noBuiltinTools = true }
}

// WithoutBuiltinPrompts leaves out the document_api prompt.
func WithoutBuiltinPrompts() Option {
	return func(s *settings) { s.noBuiltinPrompts = true }
}

// WithTool adds a tool whose handler needs nothing from the server. In is
// decoded from the call arguments, Out becomes the structured result:
//
//	mcpsrv.WithTool(&mcp.Tool{Name: "value_len", Description: "Length of a value"},
//	    func(ctx context.Context, req *mcp.CallToolRequest, in LenInput) (*mcp.CallToolResult, LenOutput, error) {
//	        return nil, LenOutput{Len: len(in.Value)}, nil
//	    })
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(s *settings) {
		s.registrations = append(s.registrations, func(srv *mcp.Server, _ *Deps) {
			AddTool(srv, tool, handler)
		})
	}
}

// WithDepsTool adds a tool whose handler is built from the server's Deps,
// for tools that run the configured pipeline or read stored results:
//
//	mcpsrv.WithDepsTool(&mcp.Tool{Name: "count_endpoints", Description: "Endpoints in a capture"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, PathInput) (*mcp.CallToolResult, CountOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in PathInput) (*mcp.CallToolResult, CountOutput, error) {
//	            res, err := d.Pipeline().RunFile(ctx, in.Path)
//	            if err != nil {
//	                return nil, CountOutput{}, err
//	            }
//	            return nil, CountOutput{Count: res.Endpoints}, nil
//	        }
//	    })
func WithDepsTool[In, Out any](tool *mcp.Tool, build func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(s *settings) {
		s.registrations = append(s.registrations, func(srv *mcp.Server, d *Deps) {
			AddTool(srv, tool, build(d))
		})
	}
}

// WithPrompt adds a prompt.
func WithPrompt(prompt *mcp.Prompt, handler mcp.PromptHandler) Option {
	return func(s *settings) {
		s.registrations = append(s.registrations, func(srv *mcp.Server, _ *Deps) {
			srv.AddPrompt(prompt, handler)
		})
	}
}

// WithResourceTemplate adds a resource template.
func WithResourceTemplate(template *mcp.ResourceTemplate, handler mcp.ResourceHandler) Option {
	return func(s *settings) {
		s.registrations = append(s.registrations, func(srv *mcp.Server, _ *Deps) {
			srv.AddResourceTemplate(template, handler)
		})
	}
}
