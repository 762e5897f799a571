// Package mcp exposes the reasoning engines as MCP tools.
//
// Tools run against the calling session's chains held by a session.Registry.
// Engine errors are returned to the caller as tool errors carrying their
// code, offending fields and referenced node; anything else is reported as
// a generic internal error.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thinkd/internal/features"
	"github.com/fyrsmithlabs/thinkd/internal/integrated"
	"github.com/fyrsmithlabs/thinkd/internal/session"
)

// Server is the thinkd MCP server.
type Server struct {
	mcp          *mcp.Server
	sessions     *session.Registry
	coordinator  *integrated.Coordinator
	features     *features.Store
	metrics      *Metrics
	toolRegistry *ToolRegistry
	logger       *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "thinkd")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "thinkd",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates the server and registers every tool.
func NewServer(cfg *Config, sessions *session.Registry, coordinator *integrated.Coordinator, flags *features.Store) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if sessions == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if flags == nil {
		flags = features.NewStore(features.DefaultFlags())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "thinkd"
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp:          mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		sessions:     sessions,
		coordinator:  coordinator,
		features:     flags,
		metrics:      NewMetrics(logger),
		toolRegistry: NewToolRegistry(),
		logger:       logger.Named("mcp"),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Tools returns the registry of tool metadata.
func (s *Server) Tools() *ToolRegistry {
	return s.toolRegistry
}

// Run serves MCP on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport", zap.Int("tools", s.toolRegistry.Count()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single client over the given transport.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}
