// Package mcp serves sift's extraction and run history over the Model
// Context Protocol, so AI clients can read protobuf captures directly.
package mcp

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"Sift/pkg/types"
)

// Type aliases from shared types package
type (
	Result         = types.Result
	RunSummary     = types.RunSummary
	ExtractRequest = types.ExtractRequest
)

// SiftApp is the part of the application the tools call into.
type SiftApp interface {
	GetAppVersion() string
	Extract(ctx context.Context, req ExtractRequest) (*Result, error)

	// HasHistory reports whether ListRuns and GetRun are backed by a store.
	HasHistory() bool
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, id string) (*Result, error)
}

// MCPServer wraps the MCP server and registers sift's tools on it.
type MCPServer struct {
	app       SiftApp
	server    *server.MCPServer
	logger    zerolog.Logger
	mu        sync.Mutex
	isRunning bool
}

// NewMCPServer creates a server for app. History tools and resources are
// registered only when app has a store.
func NewMCPServer(app SiftApp, logger zerolog.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		"sift",
		app.GetAppVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
	)

	s := &MCPServer{
		app:    app,
		server: mcpServer,
		logger: logger,
	}

	s.registerTools()
	s.registerResources()

	return s
}

// registerTools registers all MCP tools
func (s *MCPServer) registerTools() {
	s.registerExtractTools()

	if s.app.HasHistory() {
		s.registerHistoryTools()
	}
}

// registerResources registers all MCP resources
func (s *MCPServer) registerResources() {
	if !s.app.HasHistory() {
		return
	}

	s.server.AddResource(
		mcp.NewResource(
			"sift://history",
			"Recent extraction runs",
			mcp.WithMIMEType("application/json"),
		),
		s.handleHistoryResource,
	)

	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"sift://history/{runId}",
			"Strings recovered by one extraction run",
		),
		s.handleRunResource,
	)
}

// Serve answers requests read from in until in is closed or ctx is
// cancelled.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	stdio := server.NewStdioServer(s.server)
	s.logger.Info().Str("version", s.app.GetAppVersion()).Msg("MCP server started")

	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("MCP server error")
		return err
	}
	s.logger.Info().Msg("MCP server stopped")
	return nil
}

// IsRunning returns whether Serve is active.
func (s *MCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
