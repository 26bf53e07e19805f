package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const defaultHistoryLimit = 20

// registerHistoryTools registers the run history tools
func (s *MCPServer) registerHistoryTools() {
	// list_history - List stored extraction runs
	s.server.AddTool(
		mcp.NewTool("list_history",
			mcp.WithDescription("List stored extraction runs, newest first. Each entry has an id usable with get_history."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of runs to return (default: 20, 0 for all)"),
			),
		),
		s.handleListHistory,
	)

	// get_history - Get the strings of one run
	s.server.AddTool(
		mcp.NewTool("get_history",
			mcp.WithDescription("Get the strings recovered by a stored extraction run."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Run ID from list_history"),
			),
		),
		s.handleGetHistory,
	)
}

func (s *MCPServer) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	limit := defaultHistoryLimit
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	runs, err := s.app.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent("No stored runs"),
			},
		}, nil
	}

	result := fmt.Sprintf("Found %d run(s):\n\n", len(runs))
	for i, r := range runs {
		created := time.UnixMilli(r.CreatedAt).Format(time.RFC3339)
		result += fmt.Sprintf("%d. %s\n   Source: %s, Strings: %d, Format: %s, Created: %s\n",
			i+1, r.ID, r.Source, r.Count, r.Format, created)
	}

	jsonData, _ := json.MarshalIndent(runs, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result),
			mcp.NewTextContent(fmt.Sprintf("\nJSON data:\n```json\n%s\n```", string(jsonData))),
		},
	}, nil
}

func (s *MCPServer) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("id is required")
	}

	run, err := s.app.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	jsonData, err := json.MarshalIndent(run.Strings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize strings: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Run %s: %d string(s) from %s", run.ID, len(run.Strings), run.Source)),
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}
