package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleHistoryResource handles the sift://history resource
func (s *MCPServer) handleHistoryResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.app.ListRuns(ctx, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}

	jsonData, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize runs: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleRunResource handles the sift://history/{runId} resource template
func (s *MCPServer) handleRunResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	// Extract run ID from URI: sift://history/{runId}
	uri := request.Params.URI
	parts := strings.Split(uri, "/")
	if len(parts) < 4 || parts[3] == "" {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	runID := parts[3]

	run, err := s.app.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	jsonData, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
