package suites

import (
	"context"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/harness"
)

// Lifecycle builds the `lifecycle` suite. It is always run (spec §4.6):
// all capability flags downstream come from its initialize response.
//
// INIT-005/006 need a *fresh* transport (one that has never been
// initialized), so the caller supplies factories to spin one up; Lifecycle
// itself owns closing them.
func Lifecycle(c *Context, freshClient func() (*client.Client, func(), error)) harness.Suite {
	return harness.Suite{
		Name: "lifecycle",
		Checks: []harness.Check{
			{ID: "INIT-001", Description: "initialize returns a result", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				resp := c.Client.InitResponse
				if resp == nil {
					return nil, fmt.Errorf("initialize was never called")
				}
				if resp.Result == nil {
					return harness.Fail("initialize response carried no result"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "INIT-002", Description: "result.protocolVersion is a non-empty string", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				var body struct {
					ProtocolVersion string `json:"protocolVersion"`
				}
				if err := decodeResult(c.Client.InitResponse, &body); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if body.ProtocolVersion == "" {
					return harness.Fail("protocolVersion missing or empty"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "INIT-003", Description: "result.capabilities is an object", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				var body struct {
					Capabilities map[string]any `json:"capabilities"`
				}
				if err := decodeResult(c.Client.InitResponse, &body); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if body.Capabilities == nil {
					return harness.Fail("capabilities missing"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "INIT-004", Description: "server still answers requests after notifications/initialized", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "ping", nil)
				if err == nil && resp.Error == nil {
					return harness.Pass(), nil
				}
				rctx2, cancel2 := c.requestCtx(ctx)
				defer cancel2()
				resp, err = c.Client.Request(rctx2, "tools/list", map[string]any{})
				if err != nil {
					return harness.Fail(fmt.Sprintf("server unresponsive after initialized: %v", err)), nil
				}
				if resp.Error != nil {
					return harness.Fail(fmt.Sprintf("server unresponsive after initialized: %s", resp.Error.Error())), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "INIT-005", Description: "requests before initialize are rejected or close the connection", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				fresh, closeFn, err := freshClient()
				if err != nil {
					return nil, err
				}
				defer closeFn()
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := fresh.Request(rctx, "tools/list", map[string]any{})
				if err != nil {
					return harness.Pass(), nil
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				return harness.Warn("server answered tools/list before initialize"), nil
			}},
			{ID: "INIT-006", Description: "a second initialize on the same connection is rejected", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				fresh, closeFn, err := freshClient()
				if err != nil {
					return nil, err
				}
				defer closeFn()
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				if _, err := fresh.Initialize(rctx); err != nil {
					return nil, fmt.Errorf("first initialize failed: %w", err)
				}
				rctx2, cancel2 := c.requestCtx(ctx)
				defer cancel2()
				resp, err := fresh.Request(rctx2, "initialize", map[string]any{
					"protocolVersion": client.ProtocolVersion,
					"capabilities":    map[string]any{},
					"clientInfo":      map[string]any{"name": client.ClientName, "version": client.ClientVersion},
				})
				if err != nil {
					return harness.Pass(), nil
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				return harness.Warn("server accepted a second initialize"), nil
			}},
		},
	}
}
