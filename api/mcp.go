package api

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docdiff/compare"
	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/docpipe"
	"github.com/hazyhaar/docdiff/kit"
	"github.com/hazyhaar/docdiff/safeio"
)

// maxWait bounds a docdiff_compare call with wait=true.
const maxWait = 10 * time.Minute

// RegisterMCP registers the comparison tools on an MCP server.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerCompareTool(srv)
	s.registerStatusTool(srv)
	s.registerResultTool(srv)
}

func (s *Server) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	endpoint = kit.Chain(kit.Logged(s.logger, tool.Name))(endpoint)
	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// --- compare ---

type compareReq struct {
	Original string `json:"original"`
	Modified string `json:"modified"`
	Wait     bool   `json:"wait"`
}

// CompareResponse is returned by docdiff_compare. Result is set only when
// the call waited for a completed job.
type CompareResponse struct {
	Job    docmodel.Job     `json:"job"`
	Result *docmodel.Result `json:"result,omitempty"`
}

func (s *Server) registerCompareTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docdiff_compare",
		Description: "Compare two versions of a contract file. Returns the job status; with wait=true, blocks until the comparison finishes and includes the result.",
		InputSchema: docpipe.InputSchema(map[string]any{
			"original": map[string]any{"type": "string", "description": "Path of the original document"},
			"modified": map[string]any{"type": "string", "description": "Path of the modified document"},
			"wait":     map[string]any{"type": "boolean", "description": "Wait for the comparison to finish"},
		}, []string{"original", "modified"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*compareReq)
		if r.Original == "" || r.Modified == "" {
			return nil, fmt.Errorf("original and modified are required")
		}
		a, err := s.readSource(r.Original)
		if err != nil {
			return nil, err
		}
		b, err := s.readSource(r.Modified)
		if err != nil {
			return nil, err
		}

		id, err := s.svc.SubmitSources(ctx, a, b)
		if err != nil {
			return nil, err
		}
		if !r.Wait {
			job, err := s.svc.Status(id)
			return CompareResponse{Job: job}, err
		}

		waitCtx, cancel := context.WithTimeout(ctx, maxWait)
		defer cancel()
		job, err := s.svc.Wait(waitCtx, id)
		if err != nil {
			return nil, fmt.Errorf("wait for %s: %w", id, err)
		}
		resp := CompareResponse{Job: job}
		if job.Status == docmodel.StatusCompleted {
			resp.Result, err = s.svc.Result(id)
		}
		return resp, err
	}

	s.register(srv, tool, endpoint, decodeInto[compareReq])
}

// readSource reads a client-named file; each file gets half the upload
// budget.
func (s *Server) readSource(name string) (*compare.Source, error) {
	path, err := safeio.Confine(s.cfg.FilesRoot, name)
	if err != nil {
		return nil, err
	}
	data, err := safeio.ReadFile(path, s.cfg.MaxUploadBytes/2)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &compare.Source{Name: filepath.Base(path), Data: data}, nil
}

// --- status / result ---

type idReq struct {
	ComparisonID string `json:"comparison_id"`
}

var idSchema = docpipe.InputSchema(map[string]any{
	"comparison_id": map[string]any{"type": "string", "description": "Comparison id returned by docdiff_compare"},
}, []string{"comparison_id"})

func (s *Server) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docdiff_status",
		Description: "Get the status and progress of a comparison.",
		InputSchema: idSchema,
	}
	endpoint := func(_ context.Context, req any) (any, error) {
		return s.svc.Status(req.(*idReq).ComparisonID)
	}
	s.register(srv, tool, endpoint, decodeInto[idReq])
}

func (s *Server) registerResultTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docdiff_result",
		Description: "Get the full result of a completed comparison.",
		InputSchema: idSchema,
	}
	endpoint := func(_ context.Context, req any) (any, error) {
		return s.svc.Result(req.(*idReq).ComparisonID)
	}
	s.register(srv, tool, endpoint, decodeInto[idReq])
}
