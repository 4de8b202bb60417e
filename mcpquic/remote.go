package mcpquic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/docdiff/api"
)

const handshakeTimeout = 10 * time.Second

// Remote drives a docdiff server over one MCP-over-QUIC session. File names
// passed to Compare are resolved on the server, under its files_root.
type Remote struct {
	addr    string
	conn    *quic.Conn
	session *mcp.ClientSession
}

// Dial connects to the listener at addr and runs the MCP handshake. A nil
// tlsCfg verifies the server certificate.
func Dial(ctx context.Context, addr string, tlsCfg *tls.Config) (*Remote, error) {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(false)
	}
	conn, err := quic.DialAddr(ctx, addr, tlsCfg, ProductionQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("mcpquic: dial %s: %w", addr, err)
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN")
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedALPN, alpn)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err == nil {
		err = SendMagicBytes(stream)
	}
	if err != nil {
		conn.CloseWithError(ConnErrorProtocolViolation, "session stream failed")
		return nil, &ConnectionError{RemoteAddr: addr, Code: ConnErrorProtocolViolation, Err: err}
	}

	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	client := mcp.NewClient(&mcp.Implementation{Name: "docdiff-remote", Version: "0.1.0"}, nil)
	session, err := client.Connect(hctx, newIOTransport(stream), nil)
	if err != nil {
		conn.CloseWithError(ConnErrorInternal, "mcp handshake failed")
		return nil, fmt.Errorf("mcpquic: handshake with %s: %w", addr, err)
	}
	return &Remote{addr: addr, conn: conn, session: session}, nil
}

// Compare runs docdiff_compare on two server-side files and waits for the
// job. Result is nil unless the job completed.
func (r *Remote) Compare(ctx context.Context, original, modified string) (*api.CompareResponse, error) {
	var resp api.CompareResponse
	args := map[string]any{"original": original, "modified": modified, "wait": true}
	if err := r.call(ctx, "docdiff_compare", args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Formats lists the file extensions the server accepts.
func (r *Remote) Formats(ctx context.Context) ([]string, error) {
	var resp struct {
		Formats []string `json:"formats"`
	}
	if err := r.call(ctx, "docdiff_formats", map[string]any{}, &resp); err != nil {
		return nil, err
	}
	return resp.Formats, nil
}

// Close ends the session and the connection. It is safe to call twice.
func (r *Remote) Close() error {
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	r.conn.CloseWithError(ConnErrorNoError, "done")
	return err
}

func (r *Remote) call(ctx context.Context, tool string, args map[string]any, out any) error {
	if r.session == nil {
		return ErrConnectionClosed
	}
	res, err := r.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("mcpquic: %s on %s: %w", tool, r.addr, err)
	}
	text := contentText(res.Content)
	if res.IsError {
		return fmt.Errorf("%w: %s: %s", ErrToolFailed, tool, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("mcpquic: decode %s: %w", tool, err)
	}
	return nil
}

func contentText(content []mcp.Content) string {
	var b strings.Builder
	for _, c := range content {
		if t, ok := c.(*mcp.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}
