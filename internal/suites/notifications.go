package suites

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/harness"
	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
)

// progressEntry is the payload shape of a notifications/progress message.
type progressEntry struct {
	ProgressToken any     `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
}

// Notifications builds the `notifications` suite. It always runs; SUB-001
// and SUB-002 further self-gate on the server advertising
// resources.subscribe and on RES-001 having discovered at least one
// resource (artifact handoff). SUB-003 always skips.
func Notifications(c *Context) harness.Suite {
	return harness.Suite{
		Name: "notifications",
		Checks: []harness.Check{
			{ID: "NOTIF-001", Description: "server still operational after notifications/initialized", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				if err := c.Client.Notify(ctx, "notifications/initialized", nil); err != nil {
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
			{ID: "NOTIF-002", Description: "buffered tools/list_changed notifications satisfy the notification format rule", Severity: harness.SeverityError, Run: notificationFormatCheck(c, "notifications/tools/list_changed")},
			{ID: "NOTIF-003", Description: "buffered resources/list_changed notifications satisfy the notification format rule", Severity: harness.SeverityError, Run: notificationFormatCheck(c, "notifications/resources/list_changed")},
			{ID: "NOTIF-004", Description: "buffered prompts/list_changed notifications satisfy the notification format rule", Severity: harness.SeverityError, Run: notificationFormatCheck(c, "notifications/prompts/list_changed")},
			{ID: "NOTIF-005", Description: "buffered notifications/progress entries carry a valid progressToken, non-negative progress, and non-decreasing progress per token", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				entries := matchingNotifications(c, "notifications/progress")
				if len(entries) == 0 {
					return nil, harness.Skip("no notifications/progress messages observed")
				}
				last := map[any]float64{}
				for _, n := range entries {
					var p progressEntry
					if err := json.Unmarshal(n.Params, &p); err != nil {
						return harness.Warn(fmt.Sprintf("a notifications/progress message did not decode: %v", err)), nil
					}
					if p.ProgressToken == nil {
						return harness.Warn("a notifications/progress message carried no progressToken"), nil
					}
					if p.Progress < 0 {
						return harness.Warn(fmt.Sprintf("progress token %v carried negative progress %v", p.ProgressToken, p.Progress)), nil
					}
					if p.Total > 0 && p.Progress > p.Total {
						return harness.Warn(fmt.Sprintf("progress token %v reported progress %v exceeding total %v", p.ProgressToken, p.Progress, p.Total)), nil
					}
					if prev, ok := last[p.ProgressToken]; ok && p.Progress < prev {
						return harness.Warn(fmt.Sprintf("progress token %v regressed from %v to %v", p.ProgressToken, prev, p.Progress)), nil
					}
					last[p.ProgressToken] = p.Progress
				}
				return harness.PassDetail(fmt.Sprintf("%d progress notifications", len(entries))), nil
			}},
			{ID: "SUB-001", Description: "subscribing to a discovered resource succeeds", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.Capabilities.SubFlag("resources", "subscribe") {
					return nil, harness.Skip("server does not advertise resources.subscribe")
				}
				if !c.resourcesListOK || len(c.discoveredResources) == 0 {
					return nil, harness.Skip("no resources discovered")
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "resources/subscribe", map[string]any{"uri": c.discoveredResources[0].URI})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(resp.Error.Error()), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "SUB-002", Description: "unsubscribing from a subscribed resource succeeds", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.Capabilities.SubFlag("resources", "subscribe") {
					return nil, harness.Skip("server does not advertise resources.subscribe")
				}
				if !c.resourcesListOK || len(c.discoveredResources) == 0 {
					return nil, harness.Skip("no resources discovered")
				}
				target := c.discoveredResources[0].URI
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				if _, err := c.Client.Request(rctx, "resources/subscribe", map[string]any{"uri": target}); err != nil {
					return nil, err
				}
				rctx2, cancel2 := c.requestCtx(ctx)
				defer cancel2()
				resp, err := c.Client.Request(rctx2, "resources/unsubscribe", map[string]any{"uri": target})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(resp.Error.Error()), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "SUB-003", Description: "resource update notifications are observed after a subscription (requires a server-specific trigger)", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				return nil, harness.Skip("requires a server-specific trigger to provoke a resources/updated notification")
			}},
		},
	}
}

// matchingNotifications returns the buffered notifications whose method
// equals name.
func matchingNotifications(c *Context, name string) []*jsonrpc.Message {
	var out []*jsonrpc.Message
	for _, n := range c.Client.Notifications() {
		if n.Method != nil && *n.Method == name {
			out = append(out, n)
		}
	}
	return out
}

// notificationFormatCheck builds a Run func validating every buffered
// notification of the given method against the format rule: jsonrpc=="2.0",
// method present, no id, params absent or an object.
func notificationFormatCheck(c *Context, method string) func(context.Context) (*harness.Result, error) {
	return func(ctx context.Context) (*harness.Result, error) {
		entries := matchingNotifications(c, method)
		if len(entries) == 0 {
			return nil, harness.Skip(fmt.Sprintf("no %s messages observed", method))
		}
		for _, n := range entries {
			if n.JSONRPC != "2.0" {
				return harness.Fail(fmt.Sprintf("%s notification carried jsonrpc %q", method, n.JSONRPC)), nil
			}
			if n.ID != nil && n.ID.IsValid() {
				return harness.Fail(fmt.Sprintf("%s notification carried an id", method)), nil
			}
			if len(n.Params) > 0 {
				var obj map[string]any
				if err := json.Unmarshal(n.Params, &obj); err != nil {
					return harness.Fail(fmt.Sprintf("%s notification params was not an object: %v", method, err)), nil
				}
			}
		}
		return harness.PassDetail(fmt.Sprintf("%d %s notifications", len(entries), method)), nil
	}
}
