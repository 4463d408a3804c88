package suites

import (
	"context"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/harness"
	"github.com/gate4ai/mcp-probe/internal/schema"
)

// Tools builds the `tools` suite. On success, TOOL-001 populates
// c.discoveredTools / c.toolsListSucceeded for the runner to hand down to
// the tasks and edge suites.
func Tools(c *Context) harness.Suite {
	return harness.Suite{
		Name: "tools",
		Checks: []harness.Check{
			{ID: "TOOL-001", Description: "tools/list yields an array (pagination followed to completion)", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				raw, err := c.Client.PaginatedList(rctx, "tools/list", "tools")
				if err != nil {
					return nil, err
				}
				tools, err := decodeEntries[Tool](raw)
				if err != nil {
					return harness.Fail(err.Error()), nil
				}
				c.discoveredTools = tools
				c.toolsListSucceeded = true
				return harness.PassDetail(fmt.Sprintf("%d tools", len(tools))), nil
			}},
			{ID: "TOOL-002", Description: "every tool has a non-empty name and an object inputSchema", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded {
					return nil, harness.Skip("tools/list did not succeed")
				}
				for _, t := range c.discoveredTools {
					if t.Name == "" {
						return harness.Fail("a tool had an empty name"), nil
					}
					if t.InputSchema == nil {
						return harness.Fail(fmt.Sprintf("tool %q has no inputSchema object", t.Name)), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "TOOL-003", Description: "each inputSchema is a valid schema document", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded {
					return nil, harness.Skip("tools/list did not succeed")
				}
				for _, t := range c.discoveredTools {
					if t.InputSchema == nil {
						continue
					}
					if err := c.Validator.Validate(t.InputSchema); err != nil {
						return harness.Fail(fmt.Sprintf("tool %q: %v", t.Name, err)), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "TOOL-004", Description: "calling a tool with synthesized valid arguments succeeds", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded {
					return nil, harness.Skip("tools/list did not succeed")
				}
				tool, args, ok := firstSynthesizableTool(c.discoveredTools)
				if !ok {
					return nil, harness.Skip("no tool had a synthesizable schema")
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/call", map[string]any{"name": tool.Name, "arguments": args})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(fmt.Sprintf("tool %q: %s", tool.Name, resp.Error.Error())), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "TOOL-005", Description: "calling a tool with invalid arguments is reported as an error", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded || len(c.discoveredTools) == 0 {
					return nil, harness.Skip("no tools discovered")
				}
				tool := c.discoveredTools[0]
				args := schema.Invalid(tool.InputSchema)
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/call", map[string]any{"name": tool.Name, "arguments": args})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				var result map[string]any
				if err := decodeResult(resp, &result); err == nil && isErrorResult(result) {
					return harness.Pass(), nil
				}
				return harness.Warn("server accepted deliberately invalid arguments"), nil
			}},
			{ID: "TOOL-006", Description: "calling a nonexistent tool returns an error", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tools/call", map[string]any{"name": "nonexistent_tool_for_tool006", "arguments": map[string]any{}})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				return harness.Warn("server accepted a call to a nonexistent tool"), nil
			}},
			{ID: "TOOL-007", Description: "tool names match [a-z0-9_-]+", Severity: harness.SeverityInfo, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded {
					return nil, harness.Skip("tools/list did not succeed")
				}
				for _, t := range c.discoveredTools {
					if !toolNamePattern.MatchString(t.Name) {
						return harness.Fail(fmt.Sprintf("tool name %q does not match [a-z0-9_-]+", t.Name)), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "TOOL-008", Description: "pagination was exercised", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded {
					return nil, harness.Skip("tools/list did not succeed")
				}
				if !c.Client.PaginationExercised("tools/list") {
					return nil, harness.Skip("server returned a single page")
				}
				return harness.Pass(), nil
			}},
		},
	}
}

func firstSynthesizableTool(tools []Tool) (Tool, map[string]any, bool) {
	for _, t := range tools {
		if t.InputSchema == nil {
			continue
		}
		v := schema.Synthesize(t.InputSchema)
		if schema.IsSentinel(v) {
			continue
		}
		args, ok := v.(map[string]any)
		if !ok {
			args = map[string]any{}
		}
		return t, args, true
	}
	return Tool{}, nil, false
}
