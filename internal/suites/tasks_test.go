package suites

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTasksContext(handle func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error), timeout time.Duration) *Context {
	ft := &fakeTransport{handle: handle}
	c := client.New(ft, zap.NewNop(), time.Second)
	return &Context{Client: c, Timeout: timeout}
}

func TestTasksDiscoversAndInspectsCompletedTask(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tasks/list":
			return jsonResult(`{"tasks":[{"taskId":"t1","status":"completed","createdAt":"now"}]}`), nil
		case "tasks/get":
			var body struct {
				TaskID string `json:"taskId"`
			}
			_ = json.Unmarshal(params, &body)
			if body.TaskID != "t1" {
				return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "unknown task"}
			}
			return jsonResult(`{"taskId":"t1","status":"completed","createdAt":"now"}`), nil
		case "tasks/cancel":
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidRequest, Message: "task already terminal"}
		case "tasks/get_result":
			return jsonResult(`{"content":[{"type":"text","text":"done"}]}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)

	res := runSuite(t, Tasks(sc))
	require.True(t, sc.discoveredTasks != nil)
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-001").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-002").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-003").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-004").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "TASK-005").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-006").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-007").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "TASK-008").Status))
}

func TestTasksTASK002FailsOnInvalidStatusEnum(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		if method == "tasks/list" {
			return jsonResult(`{"tasks":[{"taskId":"t1","status":"running","createdAt":"now"}]}`), nil
		}
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
	}, time.Second)

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "FAIL", string(findCheck(t, res, "TASK-002").Status))
}

func TestTasksTASK005PassesWhenCancelReportsCancelled(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tasks/list":
			return jsonResult(`{"tasks":[{"taskId":"t1","status":"working","createdAt":"now"}]}`), nil
		case "tasks/cancel":
			return jsonResult(`{"taskId":"t1","status":"cancelled"}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-005").Status))
}

func TestTasksTASK005WarnsWhenCancelDoesNotReportCancelled(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tasks/list":
			return jsonResult(`{"tasks":[{"taskId":"t1","status":"working","createdAt":"now"}]}`), nil
		case "tasks/cancel":
			return jsonResult(`{"taskId":"t1","status":"working"}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "WARN", string(findCheck(t, res, "TASK-005").Status))
}

func TestTasksTASK006WarnsWhenCancellingTerminalAccepted(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tasks/list":
			return jsonResult(`{"tasks":[{"taskId":"t1","status":"completed","createdAt":"now"}]}`), nil
		case "tasks/cancel":
			return jsonResult(`{"taskId":"t1","status":"cancelled"}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "WARN", string(findCheck(t, res, "TASK-006").Status))
}

func TestTasksTASK007FailsWhenGetResultErrors(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tasks/list":
			return jsonResult(`{"tasks":[{"taskId":"t1","status":"completed","createdAt":"now"}]}`), nil
		case "tasks/get_result":
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "result expired"}
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "FAIL", string(findCheck(t, res, "TASK-007").Status))
}

func taskCallableTool() Tool {
	return Tool{Name: "echo", InputSchema: map[string]any{"type": "object"}}
}

func TestTasksTASK008PassesWhenTaskReachesTerminalStatus(t *testing.T) {
	calls := 0
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/call":
			return jsonResult(`{"type":"task","taskId":"t1","status":"working","pollInterval":1}`), nil
		case "tasks/get":
			calls++
			return jsonResult(`{"taskId":"t1","status":"completed"}`), nil
		case "tasks/get_result":
			return jsonResult(`{"content":[{"type":"text","text":"done"}]}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)
	sc.toolsListSucceeded = true
	sc.discoveredTools = []Tool{taskCallableTool()}

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "TASK-008").Status))
	require.Equal(t, 1, calls)
}

func TestTasksTASK008WarnsWhenTaskNeverTerminates(t *testing.T) {
	sc := newTasksContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/call":
			return jsonResult(`{"type":"task","taskId":"t1","status":"working","pollInterval":1}`), nil
		case "tasks/get":
			return jsonResult(`{"taskId":"t1","status":"working"}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, time.Second)
	sc.toolsListSucceeded = true
	sc.discoveredTools = []Tool{taskCallableTool()}

	res := runSuite(t, Tasks(sc))
	require.Equal(t, "WARN", string(findCheck(t, res, "TASK-008").Status))
}
