package api

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/safeio"
)

var testMCPImpl = &mcp.Implementation{Name: "docdiff-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	s, _ := newTestServer(t)
	srv := mcp.NewServer(testMCPImpl, nil)
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) (*mcp.CallToolResult, string) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return result, tc.Text
}

func writeLeases(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "lease-v1.txt")
	b := filepath.Join(dir, "lease-v2.txt")
	if err := os.WriteFile(a, []byte(leaseA), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte(leaseB), 0o644); err != nil {
		t.Fatal(err)
	}
	return a, b
}

func TestMCP_CompareWait(t *testing.T) {
	session := mcpSession(t)
	a, b := writeLeases(t)

	res, text := mcpCall(t, session, "docdiff_compare", map[string]any{
		"original": a, "modified": b, "wait": true,
	})
	if err := res.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	var resp CompareResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Job.Status != docmodel.StatusCompleted || resp.Result == nil {
		t.Fatalf("response: %+v", resp)
	}
	if len(resp.Result.Differences) != 1 {
		t.Fatalf("differences: %+v", resp.Result.Differences)
	}

	// Status and result are reachable by id afterwards.
	res, text = mcpCall(t, session, "docdiff_status", map[string]any{"comparison_id": resp.Job.ID})
	if res.IsError {
		t.Fatalf("status: %s", text)
	}
	var job docmodel.Job
	json.Unmarshal([]byte(text), &job)
	if job.Status != docmodel.StatusCompleted {
		t.Fatalf("status: %+v", job)
	}

	res, text = mcpCall(t, session, "docdiff_result", map[string]any{"comparison_id": resp.Job.ID})
	if res.IsError {
		t.Fatalf("result: %s", text)
	}
}

func TestMCP_CompareAsync(t *testing.T) {
	session := mcpSession(t)
	a, b := writeLeases(t)

	_, text := mcpCall(t, session, "docdiff_compare", map[string]any{"original": a, "modified": b})
	var resp CompareResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Job.ID == "" || resp.Result != nil {
		t.Fatalf("async response: %+v", resp)
	}
}

func TestMCP_Errors(t *testing.T) {
	session := mcpSession(t)

	if res, _ := mcpCall(t, session, "docdiff_compare", map[string]any{
		"original": "/nonexistent/a.txt", "modified": "/nonexistent/b.txt",
	}); !res.IsError {
		t.Error("missing files should be a tool error")
	}
	if res, _ := mcpCall(t, session, "docdiff_status", map[string]any{"comparison_id": "nope"}); !res.IsError {
		t.Error("unknown id should be a tool error")
	}
	if res, _ := mcpCall(t, session, "docdiff_result", map[string]any{"comparison_id": "nope"}); !res.IsError {
		t.Error("unknown id should be a tool error")
	}
}

func TestReadSource_FilesRoot(t *testing.T) {
	_, svc := newTestServer(t)
	a, _ := writeLeases(t)
	s := New(Config{FilesRoot: filepath.Dir(a)}, svc)

	src, err := s.readSource("lease-v1.txt")
	if err != nil {
		t.Fatalf("relative path under root: %v", err)
	}
	if src.Name != "lease-v1.txt" || string(src.Data) != leaseA {
		t.Errorf("source: %q", src.Name)
	}
	if _, err := s.readSource("../lease-v1.txt"); !errors.Is(err, safeio.ErrPathTraversal) {
		t.Errorf("escape: %v", err)
	}
}
