package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/docdiff/idgen"
	"github.com/hazyhaar/docdiff/kit"
	"github.com/hazyhaar/docdiff/metrics"
)

// Listener serves the docdiff MCP tools to QUIC clients. Each connection
// carries one MCP session on its first bidirectional stream.
type Listener struct {
	ln     *quic.Listener
	srv    *mcp.Server
	logger *slog.Logger
	newID  idgen.Generator
	active atomic.Int64
}

// Option configures a Listener.
type Option func(*Listener)

// WithIDGenerator sets the session id generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *Listener) { l.newID = gen }
}

// Listen binds addr (UDP). tlsCfg must advertise ALPNProtocolMCP.
func Listen(addr string, tlsCfg *tls.Config, srv *mcp.Server, logger *slog.Logger, opts ...Option) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := quic.ListenAddr(addr, tlsCfg, ProductionQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("mcpquic: listen %s: %w", addr, err)
	}
	l := &Listener{
		ln:     ln,
		srv:    srv,
		logger: logger,
		newID:  idgen.Prefixed("quic_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	logger.Info("mcpquic: listening", "addr", ln.Addr().String())
	return l, nil
}

// Addr is the bound UDP address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Sessions is the number of MCP sessions currently open.
func (l *Listener) Sessions() int { return int(l.active.Load()) }

// Serve accepts connections until ctx is done or the listener is closed.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ConnectionError{RemoteAddr: l.Addr().String(), Code: ConnErrorInternal, Err: err}
		}
		go l.serveSession(ctx, conn)
	}
}

// Close stops accepting connections. Open sessions end with their
// connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) serveSession(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()
	stream, err := acceptSession(ctx, conn)
	if err != nil {
		l.logger.Warn("mcpquic: session rejected", "remote", remote, "error", err)
		return
	}

	id := l.newID()
	log := l.logger.With("session", id, "remote", remote)
	l.active.Add(1)
	metrics.SessionOpened()
	defer func() {
		l.active.Add(-1)
		metrics.SessionClosed()
	}()

	ctx = kit.WithTransport(ctx, "mcp_quic")
	ctx = kit.WithRequestID(ctx, id)
	ss, err := l.srv.Connect(ctx, &streamTransport{stream: stream, id: id}, nil)
	if err != nil {
		log.Error("mcpquic: mcp connect", "error", err)
		conn.CloseWithError(ConnErrorInternal, "mcp connect failed")
		return
	}
	log.Info("mcpquic: session opened")
	if err := ss.Wait(); err != nil {
		log.Debug("mcpquic: session error", "error", err)
	}
	log.Info("mcpquic: session closed")
}

// acceptSession checks the negotiated protocol, then waits for the session
// stream and its preamble. Any violation closes conn.
func acceptSession(ctx context.Context, conn *quic.Conn) (*quic.Stream, error) {
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN")
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedALPN, alpn)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(ConnErrorProtocolViolation, "no session stream")
		return nil, fmt.Errorf("accept stream: %w", err)
	}
	if err := ValidateMagicBytes(stream); err != nil {
		stream.CancelWrite(StreamErrorProtocolConfusion)
		stream.CancelRead(StreamErrorProtocolConfusion)
		conn.CloseWithError(ConnErrorProtocolViolation, "invalid preamble")
		return nil, err
	}
	return stream, nil
}

// streamTransport hands the SDK an accepted stream and pins the session id
// the SDK's IO connection leaves empty.
type streamTransport struct {
	stream *quic.Stream
	id     string
}

func (t *streamTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := newIOTransport(t.stream).Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &namedConn{Connection: conn, id: t.id}, nil
}

type namedConn struct {
	mcp.Connection
	id string
}

func (c *namedConn) SessionID() string { return c.id }
