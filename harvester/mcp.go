package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/J-Schoepplenberg/mailsift/sniff"
)

// RegisterMCP registers the scan tools on an MCP server.
//
// Arguments arrive as json.RawMessage in req.Params.Arguments. A non-nil
// error return is a JSON-RPC protocol error; tool failures use
// result.SetError and return (result, nil).
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerScanTool(srv)
	s.registerDetectTool(srv)
	s.registerFormatsTool(srv)
}

const pathSchema = `{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "File path to scan"}
	},
	"required": ["path"]
}`

func (s *Service) registerScanTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mailsift_scan",
		Description: "Scan a file for email addresses. Detects the format from content signatures (text, pdf, docx, pptx, xlsx, odt, ods, odp, zip, html, xml) and returns the deduplicated address list.",
		InputSchema: json.RawMessage(pathSchema),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := pathArg(req)
		if err != nil {
			return toolError(err), nil
		}
		res, err := s.ScanFile(ctx, path)
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(res)
	})
}

func (s *Service) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mailsift_detect",
		Description: "Detect the format of a file from its binary signature (never the extension).",
		InputSchema: json.RawMessage(pathSchema),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := pathArg(req)
		if err != nil {
			return toolError(err), nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return toolError(fmt.Errorf("stat %s: %w", path, err)), nil
		}
		if info.Size() > s.cfg.MaxFileSize {
			return toolError(fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), s.cfg.MaxFileSize)), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(map[string]string{"format": string(sniff.Detect(data))})
	})
}

func (s *Service) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mailsift_formats",
		Description: "List every format the classifier can produce.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}
	srv.AddTool(tool, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolJSON(map[string]any{"formats": sniff.Formats()})
	})
}

func pathArg(req *mcp.CallToolRequest) (string, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Path == "" {
		return "", fmt.Errorf("missing path")
	}
	return in.Path, nil
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
