// Package transport implements the two wire transports a target MCP server
// may be reached over: a child process speaking line-delimited JSON-RPC on
// stdio, and streaming HTTP with optional text/event-stream responses.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
)

// Sentinel errors forming the transport failure taxonomy of spec §7.1.
var (
	ErrConnectionClosed = errors.New("transport: connection closed")
	ErrTimeout           = errors.New("transport: receive timed out")
	ErrAuthRequired      = errors.New("transport: server requires authentication")
	ErrInvalidMessage    = errors.New("transport: invalid JSON in response")
	ErrNotRunning        = errors.New("transport: not running")
)

// Transport is the minimal surface every concrete transport offers. It
// mirrors spec §4.1: start/send/receive/stop plus an IsRunning predicate.
type Transport interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, msg *jsonrpc.Message) error
	Receive(ctx context.Context, timeout time.Duration) (*jsonrpc.Message, error)
	Stop(ctx context.Context) error
	IsRunning() bool
	// Name identifies the transport for the report ("stdio" or "http").
	Name() string
}

// SignalableTransport is implemented by transports that can reach into a
// child process to send OS signals. Only the stdio transport implements it,
// and its own Stop uses it; no check in the suites type-asserts it.
type SignalableTransport interface {
	SendSignal(graceful bool) error
	// Exited reports whether the child has exited and, if so, its exit code.
	Exited() (exited bool, code int)
}

// RawWritable is implemented by transports that can inject a deliberately
// malformed payload bypassing normal JSON-RPC encoding (used by RPC-004).
type RawWritable interface {
	SendRaw(ctx context.Context, raw []byte) error
}

// Diagnostics exposes post-mortem information gathered alongside normal
// operation (the stdio transport's captured stderr).
type Diagnostics interface {
	DiagnosticsSnapshot() string
}
