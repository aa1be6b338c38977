// Package mcp serves the inference pipeline over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/internal/mcp/prompts"
	"github.com/usestring/flowschema/internal/mcp/tools"
)

const (
	serverName    = "flowschema-mcp"
	serverVersion = "1.0.0"
)

const instructions = "Infers per-endpoint API structure from mitmproxy flow files and HAR archives. " +
	"Call infer_api_schema with a capture path, then read the flowschema:// resources named in its hint."

// Server is the flowschema MCP server.
type Server struct {
	mcpServer *sdkmcp.Server
	deps      *tools.Deps
	logger    *slog.Logger

	builtinTools   bool
	builtinPrompts bool
	extra          []func(*sdkmcp.Server)
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithBuiltinTools registers infer_api_schema, classify_value and the
// flowschema:// resources.
func WithBuiltinTools() ServerOption {
	return func(s *Server) { s.builtinTools = true }
}

// WithBuiltinPrompts registers the document_api prompt.
func WithBuiltinPrompts() ServerOption {
	return func(s *Server) { s.builtinPrompts = true }
}

// WithCustomRegistration runs fn against the underlying server after the
// builtins are registered.
func WithCustomRegistration(fn func(*sdkmcp.Server)) ServerOption {
	return func(s *Server) { s.extra = append(s.extra, fn) }
}

// WithLogger sets the logger used by the call logging middleware.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer builds a Server over deps.
func NewServer(deps *tools.Deps, opts ...ServerOption) (*Server, error) {
	if deps == nil {
		return nil, errors.New("mcp: deps is required")
	}

	s := &Server{deps: deps}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: serverName, Version: serverVersion},
		&sdkmcp.ServerOptions{Instructions: instructions},
	)
	s.mcpServer.AddReceivingMiddleware(LoggingMiddleware(s.logger))

	if s.builtinTools {
		tools.Register(s.mcpServer, deps)
		s.registerResources()
	}
	if s.builtinPrompts {
		prompts.Register(s.mcpServer, &prompts.Config{
			OutputFormat:   deps.Writer.Format,
			EmitJSONSchema: deps.Writer.EmitJSONSchema,
		})
	}
	for _, fn := range s.extra {
		fn(s.mcpServer)
	}

	return s, nil
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.mcpServer
}
