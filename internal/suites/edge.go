package suites

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gate4ai/mcp-probe/internal/harness"
)

// Edge builds the `edge` suite: boundary and stress conditions that a
// well-behaved server should survive without corrupting its connection
// state (spec §4.6, always run).
func Edge(c *Context) harness.Suite {
	return harness.Suite{
		Name: "edge",
		Checks: []harness.Check{
			{ID: "EDGE-001", Description: "an oversized request parameter is handled without dropping the connection", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded || len(c.discoveredTools) == 0 {
					return nil, harness.Skip("no tools discovered")
				}
				tool, args, ok := firstSynthesizableTool(c.discoveredTools)
				if !ok {
					return nil, harness.Skip("no tool had a synthesizable schema")
				}
				oversized := strings.Repeat("a", 1<<20)
				for k, v := range args {
					if _, ok := v.(string); ok {
						args[k] = oversized
					}
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				if _, err := c.Client.Request(rctx, "tools/call", map[string]any{"name": tool.Name, "arguments": args}); err != nil {
					return harness.Warn(fmt.Sprintf("oversized request disrupted the connection: %v", err)), nil
				}
				rctx2, cancel2 := c.requestCtx(ctx)
				defer cancel2()
				resp, err := c.Client.Request(rctx2, "tools/list", map[string]any{})
				if err != nil || resp.Error != nil {
					return harness.Warn("connection did not recover after an oversized request"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "EDGE-002", Description: "unicode and control-adjacent text round-trips through a tool call", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded || len(c.discoveredTools) == 0 {
					return nil, harness.Skip("no tools discovered")
				}
				tool, args, ok := firstSynthesizableTool(c.discoveredTools)
				if !ok {
					return nil, harness.Skip("no tool had a synthesizable schema")
				}
				const sample = "probe éèê 日本語 \U0001F600"
				for k, v := range args {
					if _, ok := v.(string); ok {
						args[k] = sample
					}
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/call", map[string]any{"name": tool.Name, "arguments": args})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Info(fmt.Sprintf("tool rejected unicode arguments: %s", resp.Error.Error())), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "EDGE-003", Description: "a burst of concurrent requests is correlated correctly under self-throttling", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				const burst = 8
				var wg sync.WaitGroup
				errs := make([]error, burst)
				mismatches := make([]bool, burst)
				for i := 0; i < burst; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						if c.Limiter != nil {
							if err := c.Limiter.Wait(ctx); err != nil {
								errs[i] = err
								return
							}
						}
						rctx, cancel := c.requestCtx(ctx)
						defer cancel()
						resp, err := c.Client.Request(rctx, "tools/list", map[string]any{})
						if err != nil {
							errs[i] = err
							return
						}
						if resp.Error != nil {
							errs[i] = fmt.Errorf("%s", resp.Error.Error())
							return
						}
						mismatches[i] = !resp.ID.IsValid()
					}(i)
				}
				wg.Wait()
				for i, err := range errs {
					if err != nil {
						return harness.Warn(fmt.Sprintf("request %d of burst failed: %v", i, err)), nil
					}
					if mismatches[i] {
						return harness.Fail(fmt.Sprintf("request %d of burst returned an invalid id", i)), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "EDGE-004", Description: "a legacy JSON-RPC batch array leaves the connection usable (rejection itself is not checked)", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				batch := []byte(`[{"jsonrpc":"2.0","id":"probe-batch-1","method":"tools/list","params":{}}]`)
				if _, err := c.Client.SendRaw(rctx, batch); err != nil {
					return harness.Info(fmt.Sprintf("batch request disrupted the connection: %v", err)), nil
				}
				rctx2, cancel2 := c.requestCtx(ctx)
				defer cancel2()
				resp, err := c.Client.Request(rctx2, "tools/list", map[string]any{})
				if err != nil || resp.Error != nil {
					return harness.Info("connection did not recover after a batch request"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "EDGE-005", Description: "a client-side cancellation leaves the connection usable for later requests", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				_, _ = c.Client.Request(cctx, "tools/list", map[string]any{})
				rctx, rcancel := c.requestCtx(ctx)
				defer rcancel()
				resp, err := c.Client.Request(rctx, "tools/list", map[string]any{})
				if err != nil {
					return harness.Warn(fmt.Sprintf("connection did not recover after a cancelled request: %v", err)), nil
				}
				if resp.Error != nil {
					return harness.Warn(fmt.Sprintf("connection did not recover after a cancelled request: %s", resp.Error.Error())), nil
				}
				return harness.Pass(), nil
			}},
		},
	}
}
