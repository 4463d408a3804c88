// Package suites implements the nine conformance suites of the check
// catalogue (spec §4.5): lifecycle, jsonrpc, tools, resources, prompts,
// notifications, tasks, edge, auth.
package suites

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/oauth"
	"github.com/gate4ai/mcp-probe/internal/schema"
	"github.com/gate4ai/mcp-probe/internal/transport"
	"golang.org/x/time/rate"
)

// Capabilities is the recognized top-level capability map advertised by the
// server at initialize time (spec §3): presence of a key means the feature
// exists, nested keys refine it.
type Capabilities map[string]map[string]any

func ParseCapabilities(raw json.RawMessage) Capabilities {
	caps := Capabilities{}
	if len(raw) == 0 {
		return caps
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return caps
	}
	for _, key := range []string{"tools", "resources", "prompts", "tasks"} {
		val, ok := generic[key]
		if !ok {
			continue
		}
		nested := map[string]any{}
		_ = json.Unmarshal(val, &nested)
		caps[key] = nested
	}
	return caps
}

func (c Capabilities) Has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c Capabilities) SubFlag(name, sub string) bool {
	nested, ok := c[name]
	if !ok {
		return false
	}
	v, ok := nested[sub]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Tool is the slice of a tools/list entry the suites need to inspect.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Resource is the slice of a resources/list entry the suites need.
type Resource struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
}

// Prompt is the slice of a prompts/list entry the suites need.
type Prompt struct {
	Name      string           `json:"name"`
	Arguments []PromptArgument `json:"arguments,omitempty"`
}

type PromptArgument struct {
	Name     string `json:"name"`
	Required bool   `json:"required,omitempty"`
}

// Task is the slice of a tasks/list entry the suites need.
type Task struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// Context carries everything a suite constructor needs: the connected
// client, discovered capabilities, and artifacts handed down from earlier
// suites (discovered tools/resources). This is the "explicit state on a
// context struct" design note of spec §9 — no implicit globals.
type Context struct {
	Client       *client.Client
	Transport    transport.Transport
	Timeout      time.Duration
	Capabilities Capabilities
	Validator    schema.Validator
	TokenSource  oauth.TokenAcquirer
	RequestedSet map[string]bool // suites explicitly requested on the CLI
	Limiter      *rate.Limiter
	ErrorCodes   *ErrorCodeLedger

	// Artifacts discovered by earlier suites, per spec §4.6.
	discoveredTools     []Tool
	toolsListSucceeded  bool
	discoveredResources []Resource
	resourcesListOK     bool
	discoveredTasks     []Task
	tasksListOK         bool
	discoveredPrompts   []Prompt
	promptsListOK       bool

	// BaseURL is set only for the HTTP transport; used by the auth suite.
	BaseURL string

	// IsTerminal reports whether an interactive terminal is attached to
	// the probe process; AUTH-004 only runs the full PKCE flow when true.
	IsTerminal bool

	FailFast bool

	// discoveredAuthServers is populated by AUTH-002 from the protected
	// resource metadata document and consumed by AUTH-003.
	discoveredAuthServers []string
}

func (c *Context) explicitlyRequested(name string) bool {
	if c.RequestedSet == nil {
		return false
	}
	return c.RequestedSet[name]
}

// requestCtx returns a context bound to the configured per-check timeout.
func (c *Context) requestCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.Timeout)
}
