// Package client implements the MCP JSON-RPC client: request/response
// correlation, notification buffering, and pagination, on top of a
// transport.Transport.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/gate4ai/mcp-probe/internal/transport"
	"go.uber.org/zap"
)

const (
	ProtocolVersion = "2025-06-18"
	ClientName      = "mcp-probe"
	ClientVersion   = "0.1.0"
)

// Client owns one monotonic request id counter and multiplexes
// request/response pairs over a single transport, buffering
// server-initiated notifications for later inspection.
type Client struct {
	transport transport.Transport
	logger    *zap.Logger
	timeout   time.Duration

	counter int64

	mu            sync.Mutex
	notifications []*jsonrpc.Message

	// pagination remembers, per method, whether the first page carried a
	// nextCursor — lets TOOL-008/RES-005 distinguish single-page servers
	// (SKIP) from exercised pagination (PASS). The prompts suite has no
	// pagination check; its PROMPT-004 gets a nonexistent prompt instead.
	firstPageHadCursor map[string]bool

	ServerInfo   json.RawMessage
	Capabilities json.RawMessage
	InitResponse *jsonrpc.Message
}

func New(t transport.Transport, logger *zap.Logger, timeout time.Duration) *Client {
	return &Client{
		transport:          t,
		logger:             logger,
		timeout:            timeout,
		firstPageHadCursor: make(map[string]bool),
	}
}

func (c *Client) nextID() jsonrpc.ID {
	n := atomic.AddInt64(&c.counter, 1)
	return jsonrpc.NewID(n)
}

// Request sends {method, params} with a fresh id and blocks until a
// response with a matching id arrives. Messages without an id are appended
// to the notifications log; messages whose id doesn't match are dropped
// with a debug log (a server that reorders beyond allowed multiplexing is
// out of contract, per spec §4.2).
func (c *Client) Request(ctx context.Context, method string, params any) (*jsonrpc.Message, error) {
	id := c.nextID()
	msg, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	if err := c.transport.Send(ctx, msg); err != nil {
		return nil, err
	}
	return c.awaitResponse(ctx, id)
}

func (c *Client) awaitResponse(ctx context.Context, id jsonrpc.ID) (*jsonrpc.Message, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, transport.ErrTimeout
		}
		msg, err := c.transport.Receive(ctx, remaining)
		if err != nil {
			return nil, err
		}
		if msg.IsNotification() {
			c.mu.Lock()
			c.notifications = append(c.notifications, msg)
			c.mu.Unlock()
			c.logger.Debug("buffered notification", zap.Stringp("method", msg.Method))
			continue
		}
		if msg.ID != nil && msg.ID.Equal(id) {
			return msg, nil
		}
		got := "<none>"
		if msg.ID != nil {
			got = msg.ID.String()
		}
		c.logger.Debug("dropping message with unexpected id",
			zap.String("expected", id.String()),
			zap.String("got", got))
	}
}

// Notify sends an id-less message and does not wait for a response.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	msg, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.transport.Send(ctx, msg)
}

// SendRaw is the escape hatch used by checks that must send deliberately
// malformed or unusual messages. If raw decodes to carry an id, it waits
// for a matching response, returning nil (no error) on timeout so the
// caller can distinguish "no response" from a transport failure.
func (c *Client) SendRaw(ctx context.Context, raw []byte) (*jsonrpc.Message, error) {
	rw, ok := c.transport.(transport.RawWritable)
	if !ok {
		return nil, fmt.Errorf("client: transport does not support raw writes")
	}
	probe, decErr := jsonrpc.Decode(raw)
	if err := rw.SendRaw(ctx, raw); err != nil {
		return nil, err
	}
	if decErr != nil || probe.ID == nil || !probe.ID.IsValid() {
		return nil, nil
	}
	msg, err := c.awaitResponse(ctx, *probe.ID)
	if err != nil {
		if err == transport.ErrTimeout {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// Initialize performs the MCP handshake: sends `initialize`, records
// serverInfo/capabilities, then fires `notifications/initialized`.
func (c *Client) Initialize(ctx context.Context) (*jsonrpc.Message, error) {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    ClientName,
			"version": ClientVersion,
		},
	}
	resp, err := c.Request(ctx, "initialize", params)
	if err != nil {
		return nil, err
	}
	c.InitResponse = resp
	if resp.Result != nil {
		var parsed struct {
			ServerInfo   json.RawMessage `json:"serverInfo"`
			Capabilities json.RawMessage `json:"capabilities"`
		}
		if err := json.Unmarshal(resp.Result, &parsed); err == nil {
			c.ServerInfo = parsed.ServerInfo
			c.Capabilities = parsed.Capabilities
		}
	}
	if err := c.Notify(ctx, "notifications/initialized", nil); err != nil {
		c.logger.Warn("failed to send notifications/initialized", zap.Error(err))
	}
	return resp, nil
}

// Notifications returns a snapshot of the buffered server-initiated
// notifications. Safe to call only after the suites that would generate
// them have completed (single-writer/single-reader contract of spec §5).
func (c *Client) Notifications() []*jsonrpc.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*jsonrpc.Message, len(c.notifications))
	copy(out, c.notifications)
	return out
}

func (c *Client) Transport() transport.Transport { return c.transport }
