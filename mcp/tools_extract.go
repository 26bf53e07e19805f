package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerExtractTools registers the extraction tool
func (s *MCPServer) registerExtractTools() {
	// extract_strings - Recover readable strings from protobuf data
	s.server.AddTool(
		mcp.NewTool("extract_strings",
			mcp.WithDescription(`Recover human-readable strings from protobuf-encoded data without a schema.

Walks the protobuf wire format speculatively, descending into every length-delimited
field, and keeps the strings that look like natural-language text (UUIDs, hex digests
and symbol-heavy noise are dropped). Compressed input (gzip, zlib, zstd, snappy) is
unwrapped automatically.

Provide either 'path' (a file readable by the server) or 'data' (base64-encoded bytes).
Returns the strings in the order they appear in the input.`),
			mcp.WithString("path",
				mcp.Description("Path of the file to read"),
			),
			mcp.WithString("data",
				mcp.Description("Base64-encoded input, used when path is not given"),
			),
			mcp.WithString("mode",
				mcp.Description("Candidate search: 'walk' (protobuf wire walk, default) or 'scan' (printable byte runs)"),
				mcp.Enum("walk", "scan"),
			),
			mcp.WithString("decompress",
				mcp.Description("Container format: auto (default), none, gzip, zlib, zstd, snappy, brotli"),
			),
			mcp.WithNumber("tail",
				mcp.Description("Keep only the last N strings (0 keeps all)"),
			),
		),
		s.handleExtractStrings,
	)
}

func (s *MCPServer) handleExtractStrings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req := ExtractRequest{}
	req.Path, _ = args["path"].(string)
	req.Mode, _ = args["mode"].(string)
	req.Decompress, _ = args["decompress"].(string)
	if tail, ok := args["tail"].(float64); ok {
		req.Tail = int(tail)
	}

	if req.Path == "" {
		data, _ := args["data"].(string)
		if data == "" {
			return nil, fmt.Errorf("either path or data is required")
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
		if err != nil {
			return nil, fmt.Errorf("data is not valid base64: %w", err)
		}
		req.Data = raw
	}

	result, err := s.app.Extract(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to extract: %w", err)
	}

	summary := fmt.Sprintf("Recovered %d string(s) from %s (%d candidate(s), %d bytes, format %s, mode %s)",
		len(result.Strings), result.Source, result.Candidates, result.Bytes, result.Format, result.Mode)
	if s.app.HasHistory() {
		summary += fmt.Sprintf("\nRun ID: %s", result.ID)
	}

	jsonData, err := json.MarshalIndent(result.Strings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize strings: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(summary),
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}
