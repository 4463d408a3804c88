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

func newNotificationsContext(handle func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error), caps Capabilities) (*Context, *fakeTransport) {
	ft := &fakeTransport{handle: handle}
	c := client.New(ft, zap.NewNop(), time.Second)
	return &Context{Client: c, Timeout: time.Second, Capabilities: caps}, ft
}

// primeNotification injects a raw buffered notification ahead of the next
// response by enqueuing it directly on the fake transport's inbox, then
// draining it with a harmless request (client buffers any notification it
// reads while awaiting a response).
func primeNotification(t *testing.T, sc *Context, ft *fakeTransport, msg *jsonrpc.Message) {
	t.Helper()
	ft.inbox = append(ft.inbox, msg)
	_, err := sc.Client.Request(t.Context(), "tools/list", map[string]any{})
	require.NoError(t, err)
}

func TestNotificationsNOTIF001PassesAfterInitializedNotice(t *testing.T) {
	sc, _ := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		if method == "tools/list" {
			return jsonResult(`{"tools":[]}`), nil
		}
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
	}, Capabilities{})

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "NOTIF-001").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "NOTIF-002").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "SUB-001").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "SUB-003").Status))
}

func TestNotificationsNOTIF002PassesOnWellFormedBufferedNotification(t *testing.T) {
	sc, ft := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return jsonResult(`{"tools":[]}`), nil
	}, Capabilities{})
	method := "notifications/tools/list_changed"
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method})

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "NOTIF-002").Status))
}

func TestNotificationsNOTIF002SkipsWhenMessageCarriesAnID(t *testing.T) {
	sc, ft := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return jsonResult(`{"tools":[]}`), nil
	}, Capabilities{})
	method := "notifications/tools/list_changed"
	id := jsonrpc.NewID(999)
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method, ID: &id})

	res := runSuite(t, Notifications(sc))
	// A message with both an id and a method is a request, not a
	// notification, so it is never buffered and NOTIF-002 finds nothing.
	require.Equal(t, "SKIP", string(findCheck(t, res, "NOTIF-002").Status))
}

func TestNotificationsNOTIF003FailsWhenParamsNotAnObject(t *testing.T) {
	sc, ft := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return jsonResult(`{"tools":[]}`), nil
	}, Capabilities{})
	method := "notifications/resources/list_changed"
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method, Params: json.RawMessage(`"not-an-object"`)})

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "FAIL", string(findCheck(t, res, "NOTIF-003").Status))
}

func TestNotificationsNOTIF005PassesOnMonotonicProgress(t *testing.T) {
	sc, ft := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return jsonResult(`{"tools":[]}`), nil
	}, Capabilities{})
	method := "notifications/progress"
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method, Params: json.RawMessage(`{"progressToken":"t1","progress":1,"total":10}`)})
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method, Params: json.RawMessage(`{"progressToken":"t1","progress":5,"total":10}`)})

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "NOTIF-005").Status))
}

func TestNotificationsNOTIF005WarnsOnRegression(t *testing.T) {
	sc, ft := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return jsonResult(`{"tools":[]}`), nil
	}, Capabilities{})
	method := "notifications/progress"
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method, Params: json.RawMessage(`{"progressToken":"t1","progress":5}`)})
	primeNotification(t, sc, ft, &jsonrpc.Message{JSONRPC: "2.0", Method: &method, Params: json.RawMessage(`{"progressToken":"t1","progress":2}`)})

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "WARN", string(findCheck(t, res, "NOTIF-005").Status))
}

func TestNotificationsNOTIF005SkipsWhenNoProgressObserved(t *testing.T) {
	sc, _ := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return jsonResult(`{"tools":[]}`), nil
	}, Capabilities{})

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "SKIP", string(findCheck(t, res, "NOTIF-005").Status))
}

func TestNotificationsSubscribeFlow(t *testing.T) {
	sc, _ := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/list":
			return jsonResult(`{"tools":[]}`), nil
		case "resources/subscribe":
			return jsonResult(`{}`), nil
		case "resources/unsubscribe":
			return jsonResult(`{}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	}, Capabilities{"resources": {"subscribe": true}})
	sc.resourcesListOK = true
	sc.discoveredResources = []Resource{{URI: "probe://a", Name: "a"}}

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "SUB-001").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "SUB-002").Status))
	// SUB-003 always auto-SKIPs: it requires a server-specific trigger
	// that this fixture has no way to provoke.
	require.Equal(t, "SKIP", string(findCheck(t, res, "SUB-003").Status))
}

func TestNotificationsSubFlowsSkipWithoutSubscribeCapability(t *testing.T) {
	sc, _ := newNotificationsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		if method == "tools/list" {
			return jsonResult(`{"tools":[]}`), nil
		}
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
	}, Capabilities{})
	sc.resourcesListOK = true
	sc.discoveredResources = []Resource{{URI: "probe://a", Name: "a"}}

	res := runSuite(t, Notifications(sc))
	require.Equal(t, "SKIP", string(findCheck(t, res, "SUB-001").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "SUB-002").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "SUB-003").Status))
}
