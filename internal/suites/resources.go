package suites

import (
	"context"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/harness"
)

// Resources builds the `resources` suite, gated on the server advertising
// the resources capability (spec §4.6). On success, RES-001 populates
// c.discoveredResources / c.resourcesListOK for the notifications suite's
// SUB-001 subscribe/unsubscribe exercise.
func Resources(c *Context) harness.Suite {
	return harness.Suite{
		Name: "resources",
		Checks: []harness.Check{
			{ID: "RES-001", Description: "resources/list yields an array (pagination followed to completion)", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				raw, err := c.Client.PaginatedList(rctx, "resources/list", "resources")
				if err != nil {
					return nil, err
				}
				resources, err := decodeEntries[Resource](raw)
				if err != nil {
					return harness.Fail(err.Error()), nil
				}
				c.discoveredResources = resources
				c.resourcesListOK = true
				return harness.PassDetail(fmt.Sprintf("%d resources", len(resources))), nil
			}},
			{ID: "RES-002", Description: "every resource has a non-empty uri", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.resourcesListOK {
					return nil, harness.Skip("resources/list did not succeed")
				}
				for _, r := range c.discoveredResources {
					if r.URI == "" {
						return harness.Fail("a resource had an empty uri"), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "RES-003", Description: "reading the first discovered resource succeeds", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.resourcesListOK || len(c.discoveredResources) == 0 {
					return nil, harness.Skip("no resources discovered")
				}
				target := c.discoveredResources[0]
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "resources/read", map[string]any{"uri": target.URI})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(fmt.Sprintf("resources/read %q: %s", target.URI, resp.Error.Error())), nil
				}
				var body struct {
					Contents []map[string]any `json:"contents"`
				}
				if err := decodeResult(resp, &body); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if len(body.Contents) == 0 {
					return harness.Fail("resources/read returned no contents"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "RES-004", Description: "reading a nonexistent uri returns an error", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "resources/read", map[string]any{"uri": "probe://nonexistent-resource-for-res004"})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				return harness.Warn("server accepted a read of a nonexistent uri"), nil
			}},
			{ID: "RES-005", Description: "pagination was exercised", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.resourcesListOK {
					return nil, harness.Skip("resources/list did not succeed")
				}
				if !c.Client.PaginationExercised("resources/list") {
					return nil, harness.Skip("server returned a single page")
				}
				return harness.Pass(), nil
			}},
		},
	}
}
