package suites

import (
	"context"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/harness"
)

// Prompts builds the `prompts` suite, gated on the server advertising the
// prompts capability (spec §4.6).
func Prompts(c *Context) harness.Suite {
	return harness.Suite{
		Name: "prompts",
		Checks: []harness.Check{
			{ID: "PROMPT-001", Description: "prompts/list yields an array (pagination followed to completion)", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				raw, err := c.Client.PaginatedList(rctx, "prompts/list", "prompts")
				if err != nil {
					return nil, err
				}
				prompts, err := decodeEntries[Prompt](raw)
				if err != nil {
					return harness.Fail(err.Error()), nil
				}
				c.discoveredPrompts = prompts
				c.promptsListOK = true
				return harness.PassDetail(fmt.Sprintf("%d prompts", len(prompts))), nil
			}},
			{ID: "PROMPT-002", Description: "every prompt has a non-empty name", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.promptsListOK {
					return nil, harness.Skip("prompts/list did not succeed")
				}
				for _, p := range c.discoveredPrompts {
					if p.Name == "" {
						return harness.Fail("a prompt had an empty name"), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "PROMPT-003", Description: "getting the first prompt with its required arguments succeeds", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.promptsListOK || len(c.discoveredPrompts) == 0 {
					return nil, harness.Skip("no prompts discovered")
				}
				target := c.discoveredPrompts[0]
				args := map[string]any{}
				for _, a := range target.Arguments {
					if a.Required {
						args[a.Name] = "test"
					}
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "prompts/get", map[string]any{"name": target.Name, "arguments": args})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(fmt.Sprintf("prompts/get %q: %s", target.Name, resp.Error.Error())), nil
				}
				var body struct {
					Messages []map[string]any `json:"messages"`
				}
				if err := decodeResult(resp, &body); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if len(body.Messages) == 0 {
					return harness.Fail("prompts/get returned no messages"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "PROMPT-004", Description: "getting a nonexistent prompt returns an error", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "prompts/get", map[string]any{"name": "nonexistent_prompt_for_prompt004", "arguments": map[string]any{}})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				return harness.Warn("server accepted a get of a nonexistent prompt"), nil
			}},
		},
	}
}
