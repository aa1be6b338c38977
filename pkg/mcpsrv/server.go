package mcpsrv

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/logging"
	"github.com/usestring/flowschema/internal/mcp"
	"github.com/usestring/flowschema/internal/mcp/tools"
)

// Server is an embeddable flowschema MCP server.
type Server struct {
	inner *mcp.Server
	deps  *Deps
	close func() error
}

// NewServer installs the configured logger and builds a server with the
// builtin tools, resources and prompt plus whatever the options add.
func NewServer(opts ...Option) (*Server, error) {
	var set settings
	for _, opt := range opts {
		opt(&set)
	}
	cfg := set.config
	if cfg == nil {
		cfg = config.Load()
	}

	logCfg := logging.FromConfig(cfg)
	if set.logLevel != "" {
		logCfg.Level = set.logLevel
	}
	if set.logFile != "" {
		logCfg.FilePath = set.logFile
	}
	closeLog, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	inner, deps, err := build(cfg, &set)
	if err != nil {
		closeLog()
		return nil, err
	}
	return &Server{inner: inner, deps: deps, close: closeLog}, nil
}

func build(cfg *config.Config, set *settings) (*mcp.Server, *Deps, error) {
	toolDeps, err := tools.NewDeps(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building tool dependencies: %w", err)
	}
	deps := &Deps{
		Config:  toolDeps.Config,
		Options: toolDeps.Options,
		Writer:  toolDeps.Writer,
		Results: toolDeps.Results,
	}

	var opts []mcp.ServerOption
	if !set.noBuiltinTools {
		opts = append(opts, mcp.WithBuiltinTools())
	}
	if !set.noBuiltinPrompts {
		opts = append(opts, mcp.WithBuiltinPrompts())
	}
	for _, reg := range set.registrations {
		opts = append(opts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) { reg(srv, deps) }))
	}

	inner, err := mcp.NewServer(toolDeps, opts...)
	if err != nil {
		return nil, nil, err
	}
	return inner, deps, nil
}

// Run serves over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.inner.Run(ctx)
}

// Close releases the log file, if any.
func (s *Server) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Deps returns what custom tools share with the builtins.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.inner.MCPServer()
}
