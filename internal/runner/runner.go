// Package runner implements the orchestrator of spec §4.6: it drives the
// nine suites in a fixed order, wires capability gating and cross-suite
// artifact handoff through a shared suites.Context, and aborts the run on a
// critical lifecycle failure while still emitting a partial report.
package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gate4ai/mcp-probe/internal/client"
	"github.com/gate4ai/mcp-probe/internal/config"
	"github.com/gate4ai/mcp-probe/internal/harness"
	"github.com/gate4ai/mcp-probe/internal/oauth"
	"github.com/gate4ai/mcp-probe/internal/schema"
	"github.com/gate4ai/mcp-probe/internal/suites"
	"github.com/gate4ai/mcp-probe/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// order is the fixed suite execution order (spec §4.6). "auth" runs first
// because it must observe the server's behavior toward unauthenticated
// requests before the handshake has necessarily succeeded; "lifecycle" is
// mandatory and always runs second.
var order = []string{"auth", "lifecycle", "jsonrpc", "tools", "resources", "prompts", "notifications", "tasks", "edge"}

var knownSuites = func() map[string]bool {
	m := make(map[string]bool, len(order))
	for _, s := range order {
		m[s] = true
	}
	return m
}()

// Run is the outcome of one probe invocation: every suite that ran, in
// execution order, plus whether the run was aborted early by a critical
// lifecycle failure, and the artifacts the report needs (server info,
// capability flags, the error-code histogram).
type Run struct {
	Suites        []harness.SuiteResult
	Aborted       bool
	AbortWhy      string
	TransportName string
	ServerInfo    json.RawMessage
	Capabilities  json.RawMessage
	ErrorCodes    map[int]int
}

// Factories bundle the collaborators the orchestrator needs to build and
// rebuild clients, kept separate from RunConfig so tests can substitute
// fakes without touching the transport/flag layer.
type Factories struct {
	NewTransport   func() (transport.Transport, error)
	Logger         *zap.Logger
	TokenSource    oauth.TokenAcquirer
	Validator      schema.Validator
	BaseURL        string
	OAuthRequested bool
	IsTerminal     bool
}

// ValidateSuiteNames checks an explicit --suites selection against the
// known catalogue before any connection is attempted (maps to exit code 2
// on failure, spec §4.7).
func ValidateSuiteNames(names []string) error {
	for _, n := range names {
		if !knownSuites[n] {
			return fmt.Errorf("runner: unknown suite %q", n)
		}
	}
	return nil
}

// Run executes the fixed suite pipeline against one connected client.
func Run(ctx context.Context, cfg *config.RunConfig, f Factories) (*Run, error) {
	requested := map[string]bool{}
	for _, n := range cfg.Suites {
		requested[n] = true
	}

	t, err := f.NewTransport()
	if err != nil {
		return nil, fmt.Errorf("runner: building transport: %w", err)
	}
	if err := t.Start(ctx); err != nil {
		return nil, fmt.Errorf("runner: starting transport: %w", err)
	}
	defer t.Stop(ctx)

	c := client.New(t, f.Logger, cfg.Timeout)

	validator := f.Validator
	if validator == nil {
		validator = schema.ShallowValidator{}
	}

	sc := &suites.Context{
		Client:       c,
		Transport:    t,
		Timeout:      cfg.Timeout,
		Validator:    validator,
		TokenSource:  f.TokenSource,
		RequestedSet: requested,
		Limiter:      rate.NewLimiter(rate.Limit(10), 4),
		BaseURL:      f.BaseURL,
		FailFast:     cfg.FailFast,
		IsTerminal:   f.IsTerminal,
	}

	run := &Run{TransportName: t.Name()}

	// A first initialize attempt: on a protected HTTP server this is
	// expected to fail with ErrAuthRequired, which the auth suite's
	// AUTH-001/002 checks will observe via the transport's own state.
	_, initErr := c.Initialize(ctx)
	initAuthFailed := initErr != nil

	// auth only runs over HTTP, only when OAuth was requested, and only
	// with a server URL available (spec §4.6) — it is not subject to the
	// explicit-suite-selection override the other suites get, since
	// running it without OAuth having been requested would report on a
	// concern nobody asked to test.
	if f.OAuthRequested && t.Name() == "http" && f.BaseURL != "" {
		authResult := harness.Run(ctx, suites.Auth(sc), f.Logger)
		run.Suites = append(run.Suites, authResult)
		if anyCheckPassed(authResult, "AUTH-004") && initAuthFailed {
			// A token was acquired after the initial handshake failed;
			// retry the handshake now that the transport carries it.
			if _, err := c.Initialize(ctx); err == nil {
				initAuthFailed = false
			}
		}
	}

	sc.Capabilities = suites.ParseCapabilities(c.Capabilities)

	freshClient := func() (*client.Client, func(), error) {
		ft, err := f.NewTransport()
		if err != nil {
			return nil, nil, err
		}
		if err := ft.Start(ctx); err != nil {
			return nil, nil, err
		}
		fc := client.New(ft, f.Logger, cfg.Timeout)
		return fc, func() { ft.Stop(ctx) }, nil
	}

	lifecycleResult := harness.Run(ctx, suites.Lifecycle(sc, freshClient), f.Logger)
	run.Suites = append(run.Suites, lifecycleResult)
	if criticalFailure(lifecycleResult) {
		run.Aborted = true
		run.AbortWhy = "lifecycle suite reported a critical failure"
		finalize(run, c, sc)
		return run, nil
	}

	pipeline := []struct {
		name  string
		gate  func() bool
		build func() harness.Suite
	}{
		{"jsonrpc", func() bool { return true }, func() harness.Suite { return suites.JSONRPC(sc) }},
		{"tools", func() bool { return sc.Capabilities.Has("tools") }, func() harness.Suite { return suites.Tools(sc) }},
		{"resources", func() bool { return sc.Capabilities.Has("resources") }, func() harness.Suite { return suites.Resources(sc) }},
		{"prompts", func() bool { return sc.Capabilities.Has("prompts") }, func() harness.Suite { return suites.Prompts(sc) }},
		{"notifications", func() bool { return true }, func() harness.Suite { return suites.Notifications(sc) }},
		{"tasks", func() bool { return sc.Capabilities.Has("tasks") }, func() harness.Suite { return suites.Tasks(sc) }},
		{"edge", func() bool { return true }, func() harness.Suite { return suites.Edge(sc) }},
	}

	for _, stage := range pipeline {
		if !shouldRun(stage.name, requested) {
			continue
		}
		if !stage.gate() && !requested[stage.name] {
			continue
		}
		res := harness.Run(ctx, stage.build(), f.Logger)
		run.Suites = append(run.Suites, res)
		if cfg.FailFast && hasFailure(res) {
			run.Aborted = true
			run.AbortWhy = fmt.Sprintf("suite %q failed under --fail-fast", stage.name)
			finalize(run, c, sc)
			return run, nil
		}
	}

	finalize(run, c, sc)
	return run, nil
}

// finalize copies the artifacts the report needs off the client/context
// into the Run result, once suite execution has stopped (normally or via
// abort).
func finalize(run *Run, c *client.Client, sc *suites.Context) {
	run.ServerInfo = c.ServerInfo
	run.Capabilities = c.Capabilities
	if sc.ErrorCodes != nil {
		run.ErrorCodes = sc.ErrorCodes.Snapshot()
	}
}

// shouldRun reports whether a suite belongs in this run: every suite runs
// unless the caller gave an explicit non-empty selection that excludes it.
// "lifecycle" is always included regardless of selection (spec §4.6).
func shouldRun(name string, requested map[string]bool) bool {
	if name == "lifecycle" {
		return true
	}
	if len(requested) == 0 {
		return true
	}
	return requested[name]
}

func criticalFailure(res harness.SuiteResult) bool {
	for _, cr := range res.Checks {
		if cr.Status == harness.StatusFail && cr.Severity == harness.SeverityCritical {
			return true
		}
	}
	return false
}

func hasFailure(res harness.SuiteResult) bool {
	for _, cr := range res.Checks {
		if cr.Status == harness.StatusFail {
			return true
		}
	}
	return false
}

func anyCheckPassed(res harness.SuiteResult, id string) bool {
	for _, cr := range res.Checks {
		if cr.ID == id {
			return cr.Status == harness.StatusPass
		}
	}
	return false
}
