package suites

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/gate4ai/mcp-probe/internal/schema"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newToolsContext(handle func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error)) *Context {
	ft := &fakeTransport{handle: handle}
	c := client.New(ft, zap.NewNop(), time.Second)
	return &Context{Client: c, Timeout: time.Second, Validator: schema.ShallowValidator{}}
}

func TestToolsDiscoversAndPopulatesArtifact(t *testing.T) {
	calls := 0
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/list":
			calls++
			if calls == 1 {
				return jsonResult(`{"tools":[{"name":"echo","description":"echoes","inputSchema":{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}}],"nextCursor":"p2"}`), nil
			}
			return jsonResult(`{"tools":[{"name":"ping","description":"pings","inputSchema":{"type":"object"}}]}`), nil
		case "tools/call":
			return jsonResult(`{"content":[{"type":"text","text":"ok"}]}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	})

	res := runSuite(t, Tools(sc))
	require.True(t, sc.toolsListSucceeded)
	require.Len(t, sc.discoveredTools, 2)
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-001").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-002").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-003").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-004").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-007").Status))
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-008").Status))
}

func TestToolsTOOL002FailsOnEmptyName(t *testing.T) {
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		if method == "tools/list" {
			return jsonResult(`{"tools":[{"name":"","inputSchema":{"type":"object"}}]}`), nil
		}
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
	})

	res := runSuite(t, Tools(sc))
	require.Equal(t, "FAIL", string(findCheck(t, res, "TOOL-002").Status))
}

func TestToolsTOOL005PassesWhenInvalidArgsRejected(t *testing.T) {
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/list":
			return jsonResult(`{"tools":[{"name":"echo","inputSchema":{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}}]}`), nil
		case "tools/call":
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "missing required field text"}
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	})

	res := runSuite(t, Tools(sc))
	require.Equal(t, "PASS", string(findCheck(t, res, "TOOL-005").Status))
}

func TestToolsTOOL005WarnsWhenInvalidArgsAccepted(t *testing.T) {
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/list":
			return jsonResult(`{"tools":[{"name":"echo","inputSchema":{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}}]}`), nil
		case "tools/call":
			return jsonResult(`{"content":[{"type":"text","text":"accepted"}]}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	})

	res := runSuite(t, Tools(sc))
	require.Equal(t, "WARN", string(findCheck(t, res, "TOOL-005").Status))
}

func TestToolsTOOL006WarnsWhenNonexistentToolAccepted(t *testing.T) {
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		switch method {
		case "tools/list":
			return jsonResult(`{"tools":[]}`), nil
		case "tools/call":
			return jsonResult(`{"content":[]}`), nil
		default:
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
		}
	})

	res := runSuite(t, Tools(sc))
	require.Equal(t, "WARN", string(findCheck(t, res, "TOOL-006").Status))
}

func TestToolsTOOL008SkipsOnSinglePage(t *testing.T) {
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		if method == "tools/list" {
			return jsonResult(`{"tools":[{"name":"solo","inputSchema":{"type":"object"}}]}`), nil
		}
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "not found"}
	})

	res := runSuite(t, Tools(sc))
	require.Equal(t, "SKIP", string(findCheck(t, res, "TOOL-008").Status))
}

func TestToolsSkipWhenListDidNotSucceed(t *testing.T) {
	sc := newToolsContext(func(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "boom"}
	})

	res := runSuite(t, Tools(sc))
	require.Equal(t, "FAIL", string(findCheck(t, res, "TOOL-001").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "TOOL-002").Status))
	require.Equal(t, "SKIP", string(findCheck(t, res, "TOOL-004").Status))
}
