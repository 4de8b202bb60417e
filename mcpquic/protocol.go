// Package mcpquic carries MCP sessions over QUIC streams. A client opens one
// bidirectional stream per session, sends the 4-byte magic preamble, then
// speaks newline-delimited JSON-RPC as the SDK's IOTransport does.
package mcpquic

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"
)

const (
	// ALPNProtocolMCP is negotiated during the TLS handshake.
	ALPNProtocolMCP = "mcp-quic-v1"
	// MagicBytesMCP opens every MCP stream.
	MagicBytesMCP = "MCP1"
	// MaxMessageSize bounds a single JSON-RPC message.
	MaxMessageSize = 10 * 1024 * 1024

	DefaultIdleTimeout = 5 * time.Minute
	DefaultKeepAlive   = 30 * time.Second
)

// Connection close codes.
const (
	ConnErrorNoError           quic.ApplicationErrorCode = 0x00
	ConnErrorInternal          quic.ApplicationErrorCode = 0x01
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x02
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03
)

// Stream reset codes.
const (
	StreamErrorProtocolConfusion quic.StreamErrorCode = 0x10
)

var (
	ErrInvalidMagicBytes = errors.New("mcpquic: invalid magic bytes")
	ErrUnsupportedALPN   = errors.New("mcpquic: unsupported ALPN protocol")
	ErrConnectionClosed  = errors.New("mcpquic: connection closed")
	ErrToolFailed        = errors.New("mcpquic: tool call failed")
)

// ConnectionError describes a connection closed by this side.
type ConnectionError struct {
	RemoteAddr string
	Code       quic.ApplicationErrorCode
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mcpquic: connection %s closed (code 0x%02x): %v", e.RemoteAddr, uint64(e.Code), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SendMagicBytes writes the stream preamble.
func SendMagicBytes(w io.Writer) error {
	if _, err := io.WriteString(w, MagicBytesMCP); err != nil {
		return fmt.Errorf("mcpquic: send magic bytes: %w", err)
	}
	return nil
}

// ValidateMagicBytes reads and checks the stream preamble.
func ValidateMagicBytes(r io.Reader) error {
	buf := make([]byte, len(MagicBytesMCP))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("mcpquic: read magic bytes: %w", err)
	}
	if string(buf) != MagicBytesMCP {
		return fmt.Errorf("%w: %q", ErrInvalidMagicBytes, buf)
	}
	return nil
}

// newIOTransport frames newline-delimited JSON-RPC on a QUIC stream.
// Closing the transport half-closes the stream for writing.
func newIOTransport(s *quic.Stream) *mcp.IOTransport {
	return &mcp.IOTransport{Reader: io.NopCloser(s), Writer: s}
}

// ProductionQUICConfig returns the QUIC settings used by both ends.
// 0-RTT stays off: tool calls are not idempotent.
func ProductionQUICConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
		Allow0RTT:       false,
	}
}
