package suites

import (
	"context"
	"fmt"
	"time"

	"github.com/gate4ai/mcp-probe/internal/harness"
)

var validTaskStatus = map[string]bool{
	"working":        true,
	"input_required": true,
	"completed":      true,
	"failed":         true,
	"cancelled":      true,
}

var terminalTaskStatus = map[string]bool{
	"completed": true,
	"failed":    true,
	"cancelled": true,
}

// taskEnvelope is the `{type:"task", taskId, status, pollInterval?}` shape
// a task-augmented tools/call response carries (TASK-008).
type taskEnvelope struct {
	Type           string `json:"type"`
	TaskID         string `json:"taskId"`
	Status         string `json:"status"`
	PollIntervalMS int    `json:"pollInterval,omitempty"`
}

// Tasks builds the `tasks` suite, gated on the server advertising the tasks
// capability (spec §4.6).
func Tasks(c *Context) harness.Suite {
	return harness.Suite{
		Name: "tasks",
		Checks: []harness.Check{
			{ID: "TASK-001", Description: "tasks/list yields an array", Severity: harness.SeverityCritical, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				raw, err := c.Client.PaginatedList(rctx, "tasks/list", "tasks")
				if err != nil {
					return nil, err
				}
				tasks, err := decodeEntries[Task](raw)
				if err != nil {
					return harness.Fail(err.Error()), nil
				}
				c.discoveredTasks = tasks
				c.tasksListOK = true
				return harness.PassDetail(fmt.Sprintf("%d tasks", len(tasks))), nil
			}},
			{ID: "TASK-002", Description: "every task has a string taskId, a status in the defined enum, and a string createdAt", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.tasksListOK {
					return nil, harness.Skip("tasks/list did not succeed")
				}
				for _, t := range c.discoveredTasks {
					if t.TaskID == "" {
						return harness.Fail("a task had an empty taskId"), nil
					}
					if !validTaskStatus[t.Status] {
						return harness.Fail(fmt.Sprintf("task %q had an invalid status %q", t.TaskID, t.Status)), nil
					}
					if t.CreatedAt == "" {
						return harness.Fail(fmt.Sprintf("task %q had an empty createdAt", t.TaskID)), nil
					}
				}
				return harness.Pass(), nil
			}},
			{ID: "TASK-003", Description: "tasks/get on a discovered task returns a matching taskId and status", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.tasksListOK || len(c.discoveredTasks) == 0 {
					return nil, harness.Skip("no tasks discovered")
				}
				target := c.discoveredTasks[0]
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tasks/get", map[string]any{"taskId": target.TaskID})
				if err != nil {
					return nil, err
				}
				var got Task
				if err := decodeResult(resp, &got); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if got.TaskID != target.TaskID {
					return harness.Fail(fmt.Sprintf("expected taskId %q, got %q", target.TaskID, got.TaskID)), nil
				}
				if got.Status == "" {
					return harness.Fail("tasks/get response carried no status"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "TASK-004", Description: "tasks/get on a nonexistent id returns an error", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tasks/get", map[string]any{"taskId": "nonexistent-task-for-task004"})
				if err != nil {
					return nil, err
				}
				if resp.Error == nil {
					return harness.Fail("server accepted tasks/get on a nonexistent id"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "TASK-005", Description: "cancelling a working task yields status:\"cancelled\"", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				target, ok := firstTaskWithStatus(c.discoveredTasks, "working")
				if !ok {
					return nil, harness.Skip("no working task discovered")
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tasks/cancel", map[string]any{"taskId": target.TaskID})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(resp.Error.Error()), nil
				}
				var got Task
				if err := decodeResult(resp, &got); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if got.Status != "cancelled" {
					return harness.Warn(fmt.Sprintf("expected status %q after cancel, got %q", "cancelled", got.Status)), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "TASK-006", Description: "cancelling a terminal task returns an error", Severity: harness.SeverityWarning, Run: func(ctx context.Context) (*harness.Result, error) {
				target, ok := firstTerminalTask(c.discoveredTasks)
				if !ok {
					return nil, harness.Skip("no terminal task discovered")
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tasks/cancel", map[string]any{"taskId": target.TaskID})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Pass(), nil
				}
				return harness.Warn("server accepted cancelling an already-terminal task"), nil
			}},
			{ID: "TASK-007", Description: "tasks/get_result on a completed task returns a result", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				target, ok := firstTaskWithStatus(c.discoveredTasks, "completed")
				if !ok {
					return nil, harness.Skip("no completed task discovered")
				}
				rctx, cancel := c.requestCtx(ctx)
				defer cancel()
				resp, err := c.Client.Request(rctx, "tasks/get_result", map[string]any{"taskId": target.TaskID})
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(resp.Error.Error()), nil
				}
				if resp.Result == nil {
					return harness.Fail("tasks/get_result returned no result"), nil
				}
				return harness.Pass(), nil
			}},
			{ID: "TASK-008", Description: "a task-augmented tools/call returns a task envelope, polling up to three times at the server-advised interval for a terminal status", Severity: harness.SeverityError, Run: func(ctx context.Context) (*harness.Result, error) {
				if !c.toolsListSucceeded || len(c.discoveredTools) == 0 {
					return nil, harness.Skip("no tools discovered")
				}
				tool, args, ok := firstSynthesizableTool(c.discoveredTools)
				if !ok {
					return nil, harness.Skip("no tool with a synthesizable schema was discovered")
				}
				rctx, cancel := c.requestCtx(ctx)
				resp, err := c.Client.Request(rctx, "tools/call", map[string]any{
					"name":      tool.Name,
					"arguments": args,
					"task":      map[string]any{"ttl": 30000},
				})
				cancel()
				if err != nil {
					return nil, err
				}
				if resp.Error != nil {
					return harness.Fail(resp.Error.Error()), nil
				}
				var env taskEnvelope
				if err := decodeResult(resp, &env); err != nil {
					return harness.Fail(err.Error()), nil
				}
				if env.Type != "task" {
					return harness.Fail(fmt.Sprintf("expected type %q, got %q", "task", env.Type)), nil
				}
				if env.TaskID == "" || env.Status == "" {
					return harness.Fail("task envelope missing taskId or status"), nil
				}

				interval := time.Duration(env.PollIntervalMS) * time.Millisecond
				if interval <= 0 {
					interval = 50 * time.Millisecond
				}
				status := env.Status
				for i := 0; i < 3 && status == "working"; i++ {
					select {
					case <-time.After(interval):
					case <-ctx.Done():
						return harness.Warn(fmt.Sprintf("context cancelled while polling task %q", env.TaskID)), nil
					}
					pollCtx, pollCancel := c.requestCtx(ctx)
					got, err := c.Client.Request(pollCtx, "tasks/get", map[string]any{"taskId": env.TaskID})
					pollCancel()
					if err != nil {
						return nil, err
					}
					if got.Error != nil {
						return harness.Fail(got.Error.Error()), nil
					}
					var t Task
					if err := decodeResult(got, &t); err != nil {
						return harness.Fail(err.Error()), nil
					}
					status = t.Status
				}
				if status == "working" {
					return harness.Warn(fmt.Sprintf("task %q did not reach a terminal status after 3 polls", env.TaskID)), nil
				}
				if status == "completed" {
					resultCtx, resultCancel := c.requestCtx(ctx)
					defer resultCancel()
					resultResp, err := c.Client.Request(resultCtx, "tasks/get_result", map[string]any{"taskId": env.TaskID})
					if err != nil {
						return nil, err
					}
					if resultResp.Error != nil {
						return harness.Fail(resultResp.Error.Error()), nil
					}
					if resultResp.Result == nil {
						return harness.Fail("tasks/get_result returned no result"), nil
					}
				}
				return harness.PassDetail(fmt.Sprintf("reached status %q", status)), nil
			}},
		},
	}
}

func firstTaskWithStatus(tasks []Task, status string) (Task, bool) {
	for _, t := range tasks {
		if t.Status == status {
			return t, true
		}
	}
	return Task{}, false
}

func firstTerminalTask(tasks []Task) (Task, bool) {
	for _, t := range tasks {
		if terminalTaskStatus[t.Status] {
			return t, true
		}
	}
	return Task{}, false
}
