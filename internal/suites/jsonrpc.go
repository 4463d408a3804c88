package suites

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gate4ai/mcp-probe/internal/harness"
)

// ErrorCodeLedger accumulates every JSON-RPC error code observed during the
// run, for RPC-007's summary and the JSON report's error_codes map. It lives
// on Context so the report package can read its final snapshot after the
// run completes.
type ErrorCodeLedger struct {
	mu     sync.Mutex
	counts map[int]int
}

func NewErrorCodeLedger() *ErrorCodeLedger {
	return &ErrorCodeLedger{counts: map[int]int{}}
}

func (l *ErrorCodeLedger) Record(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[code]++
}

func (l *ErrorCodeLedger) Snapshot() map[int]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// JSONRPC builds the `jsonrpc` suite. It records every observed error code
// onto c.ErrorCodes, creating the ledger on first use if the caller hasn't
// already.
func JSONRPC(c *Context) harness.Suite {
	ledger := c.ErrorCodes
	if ledger == nil {
		ledger = NewErrorCodeLedger()
		c.ErrorCodes = ledger
	}
	return harness.Suite{
		Name: "jsonrpc",
		Checks: []harness.Check{
			{ID: "RPC-001", Description: "response carries jsonrpc:\"2.0\"", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/list", map[string]any{})
				if err != nil {
					return nil, err
				}
				if resp.JSONRPC != "2.0" {
					return harness.Fail(fmt.Sprintf("jsonrpc field was %q", resp.JSONRPC)), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RPC-002", Description: "response id equals request id", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/list", map[string]any{})
				if err != nil {
					return nil, err
				}
				if resp.ID == nil || !resp.ID.IsValid() {
					return harness.Fail("response carried no id"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RPC-003", Description: "unknown method returns a well-formed error", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "nonexistent/method_for_rpc003", map[string]any{})
				if err != nil {
					return nil, err
				}
				if resp.Error == nil {
					return harness.Fail("server accepted an unknown method"), nil
				}
				ledger.Record(resp.Error.Code)
				if resp.Error.Message == "" {
					return harness.Fail("error object carried an empty message"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RPC-004", Description: "server survives a malformed injected line", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				if _, err := c.Client.SendRaw(rctx, []byte("{ this is not valid json")); err != nil {
					return nil, fmt.Errorf("injecting malformed line: %w", err)
				}
				rctx2, cancel2 := c.requestCtx(ctx)
				defer cancel2()
				resp, err := c.Client.Request(rctx2, "tools/list", map[string]any{})
				if err != nil {
					return harness.Fail(fmt.Sprintf("server did not recover: %v", err)), nil
				}
				if resp.Error != nil {
					return harness.Fail(fmt.Sprintf("follow-up request failed: %s", resp.Error.Error())), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RPC-005", Description: "unknown method returns code -32601", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "nonexistent/method_for_rpc005", map[string]any{})
				if err != nil {
					return nil, err
				}
				if resp.Error == nil {
					return harness.Fail("server accepted an unknown method"), nil
				}
				ledger.Record(resp.Error.Code)
				if resp.Error.Code != -32601 {
					return harness.Warn(fmt.Sprintf("expected code -32601, got %d", resp.Error.Code)), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RPC-006", Description: "unknown notification does not disturb later requests", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				if err := c.Client.Notify(ctx, "notifications/nonexistent_for_rpc006", nil); err != nil {
					return nil, err
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/list", map[string]any{})
				if err != nil {
					return harness.Fail(err.Error()), nil
				}
				if resp.Error != nil {
					return harness.Fail(resp.Error.Error()), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RPC-007", Description: "summary of error codes observed during the run", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				snap := ledger.Snapshot()
				if len(snap) == 0 {
					return harness.Info("no error responses observed"), nil
				}
				codes := make([]int, 0, len(snap))
				for code := range snap {
					codes = append(codes, code)
				}
				sort.Ints(codes)
				parts := make([]string, 0, len(codes))
				for _, code := range codes {
					parts = append(parts, fmt.Sprintf("%d x%d", code, snap[code]))
				}
				return harness.Info(strings.Join(parts, ", ")), nil
			}},
		},
	}
}
