package docpipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docdiff/kit"
	"github.com/hazyhaar/docdiff/safeio"
)

// RegisterMCP registers the extraction tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerFormatsTool(srv)
}

// InputSchema builds a JSON object schema for an MCP tool.
func InputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- extract ---

type extractReq struct {
	Path string `json:"path"`
}

// ExtractSummary is the MCP view of an extracted document. Page rasters
// are reported by count only.
type ExtractSummary struct {
	Name        string   `json:"name"`
	Format      string   `json:"format"`
	Text        string   `json:"text"`
	Runs        int      `json:"runs"`
	Pages       int      `json:"pages"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docdiff_extract",
		Description: "Extract the text, formatting runs and page count of a contract file (docx, pdf, image, txt, md, html).",
		InputSchema: InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to extract"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*extractReq)
		path, err := safeio.Confine(p.cfg.FilesRoot, r.Path)
		if err != nil {
			return nil, err
		}
		data, err := safeio.ReadFile(path, p.cfg.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Path, err)
		}
		doc, err := p.Extract(ctx, r.Path, data)
		if err != nil {
			return nil, err
		}
		return ExtractSummary{
			Name:        doc.Name,
			Format:      string(doc.Format),
			Text:        doc.Text,
			Runs:        len(doc.Runs),
			Pages:       len(doc.Pages),
			Diagnostics: doc.Diagnostics,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r extractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- formats ---

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docdiff_formats",
		Description: "List the file extensions accepted for comparison.",
		InputSchema: InputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": SupportedFormats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
