package suites

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/gate4ai/mcp-probe/internal/transport"
)

// fakeTransport is a minimal in-memory transport.Transport used by every
// suite test in this package: it dispatches outgoing requests to a
// caller-supplied handler keyed by method name, grounded on the same
// per-test-file fake pattern used in internal/client/client_test.go.
type fakeTransport struct {
	handle func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error)
	inbox  []*jsonrpc.Message
	sent   []string
}

func (f *fakeTransport) Name() string                    { return "fake" }
func (f *fakeTransport) Start(ctx context.Context) error { return nil }
func (f *fakeTransport) IsRunning() bool                 { return true }
func (f *fakeTransport) Stop(ctx context.Context) error  { return nil }

func (f *fakeTransport) Send(ctx context.Context, msg *jsonrpc.Message) error {
	if msg.Method != nil {
		f.sent = append(f.sent, *msg.Method)
	}
	if msg.IsNotification() {
		return nil
	}
	result, rpcErr := f.handle(*msg.Method, msg.Params)
	resp := &jsonrpc.Message{JSONRPC: "2.0", ID: msg.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	f.inbox = append(f.inbox, resp)
	return nil
}

func (f *fakeTransport) SendRaw(ctx context.Context, raw []byte) error {
	msg, err := jsonrpc.Decode(raw)
	if err != nil {
		// A malformed line is dropped by a well-behaved server; no response.
		return nil
	}
	return f.Send(ctx, msg)
}

func (f *fakeTransport) Receive(ctx context.Context, timeout time.Duration) (*jsonrpc.Message, error) {
	if len(f.inbox) == 0 {
		return nil, transport.ErrTimeout
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msg, nil
}

func jsonResult(s string) json.RawMessage { return json.RawMessage(s) }
