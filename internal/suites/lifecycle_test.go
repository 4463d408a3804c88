package suites

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLifecycleClient(t *testing.T, handle func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error)) (*client.Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{handle: handle}
	c := client.New(ft, zap.NewNop(), time.Second)
	_, err := c.Initialize(context.Background())
	require.NoError(t, err)
	return c, ft
}

func passingHandler(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
	switch method {
	case "initialize":
		return jsonResult(`{"protocolVersion":"2025-06-18","capabilities":{"tools":{}},"serverInfo":{"name":"fixture","version":"1.0"}}`), nil
	case "ping":
		return jsonResult(`{}`), nil
	case "tools/list":
		return jsonResult(`{"tools":[]}`), nil
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
	}
}

func TestLifecycleNoFailuresOnConformantServer(t *testing.T) {
	c, _ := newLifecycleClient(t, passingHandler)
	sc := &Context{Client: c, Timeout: time.Second}
	fresh := func() (*client.Client, func(), error) {
		ft := &fakeTransport{handle: passingHandler}
		return client.New(ft, zap.NewNop(), time.Second), func() {}, nil
	}

	res := runSuite(t, Lifecycle(sc, fresh))
	for _, cr := range res.Checks {
		require.NotEqual(t, "FAIL", string(cr.Status), "check %s: %s", cr.ID, cr.Detail)
	}
}

func TestLifecycleInit001FailsWithoutInitialize(t *testing.T) {
	ft := &fakeTransport{handle: passingHandler}
	c := client.New(ft, zap.NewNop(), time.Second)
	sc := &Context{Client: c, Timeout: time.Second}
	fresh := func() (*client.Client, func(), error) {
		fc, _ := newLifecycleClient(t, passingHandler)
		return fc, func() {}, nil
	}

	res := runSuite(t, Lifecycle(sc, fresh))
	cr := findCheck(t, res, "INIT-001")
	require.Equal(t, "FAIL", string(cr.Status))
}

func TestLifecycleInit005WarnsWhenFreshClientAnswersBeforeInitialize(t *testing.T) {
	c, _ := newLifecycleClient(t, passingHandler)
	sc := &Context{Client: c, Timeout: time.Second}
	fresh := func() (*client.Client, func(), error) {
		ft := &fakeTransport{handle: func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
			return jsonResult(`{"tools":[]}`), nil
		}}
		return client.New(ft, zap.NewNop(), time.Second), func() {}, nil
	}

	res := runSuite(t, Lifecycle(sc, fresh))
	cr := findCheck(t, res, "INIT-005")
	require.Equal(t, "WARN", string(cr.Status))
}

func TestLifecycleInit006PassesWhenSecondInitializeRejected(t *testing.T) {
	c, _ := newLifecycleClient(t, passingHandler)
	sc := &Context{Client: c, Timeout: time.Second}
	initCount := 0
	fresh := func() (*client.Client, func(), error) {
		ft := &fakeTransport{handle: func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
			if method == "initialize" {
				initCount++
				if initCount > 1 {
					return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidRequest, Message: "already initialized"}
				}
				return jsonResult(`{"protocolVersion":"2025-06-18","capabilities":{}}`), nil
			}
			return jsonResult(`{}`), nil
		}}
		return client.New(ft, zap.NewNop(), time.Second), func() {}, nil
	}

	res := runSuite(t, Lifecycle(sc, fresh))
	cr := findCheck(t, res, "INIT-006")
	require.Equal(t, "PASS", string(cr.Status))
}
