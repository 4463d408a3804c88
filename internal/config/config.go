// Package config turns already-validated CLI flags (and an optional layered
// YAML file, grounded on the teacher's shared/config.YamlConfig) into the
// RunConfig the core consumes. Flag parsing and validation themselves are
// treated as an external collaborator — the composition root in cmd/mcp-probe
// builds one of these before invoking runner.Run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TransportKind selects the wire transport. SSE is explicitly rejected at
// the CLI boundary (directed to "http" instead, per spec §2): the streaming
// HTTP transport already subsumes SSE responses.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
)

// RunConfig is the fully-resolved, validated configuration for one probe
// run.
type RunConfig struct {
	Transport TransportKind

	// Stdio-specific.
	Command string

	// HTTP-specific.
	URL     string
	Headers map[string]string

	Timeout      time.Duration
	Suites       []string
	FailFast     bool
	Strict       bool
	NoColor      bool
	OutputPath   string
	OutputFormat string // "console" or "json"
}

// fileOverlay is the shape of an optional --config FILE document; any field
// present there is applied before flag values are layered on top, mirroring
// the teacher's "YAML is a base, flags win" precedence.
type fileOverlay struct {
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Timeout   string            `yaml:"timeout"`
	Suites    []string          `yaml:"suites"`
	FailFast  bool              `yaml:"fail_fast"`
	Strict    bool              `yaml:"strict"`
}

// LoadOverlay reads a YAML config file and returns the fields it set. A
// file that cannot be read is an error; the caller only calls this when
// --config was given.
func LoadOverlay(path string) (*fileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &overlay, nil
}

// ApplyOverlay layers file-provided defaults under an already-populated
// RunConfig, filling only fields the flags left at their zero value.
func ApplyOverlay(rc *RunConfig, overlay *fileOverlay) error {
	if overlay == nil {
		return nil
	}
	if rc.Transport == "" && overlay.Transport != "" {
		rc.Transport = TransportKind(overlay.Transport)
	}
	if rc.Command == "" {
		rc.Command = overlay.Command
	}
	if rc.URL == "" {
		rc.URL = overlay.URL
	}
	if len(rc.Headers) == 0 && len(overlay.Headers) > 0 {
		rc.Headers = overlay.Headers
	}
	if rc.Timeout == 0 && overlay.Timeout != "" {
		d, err := time.ParseDuration(overlay.Timeout)
		if err != nil {
			return fmt.Errorf("config: invalid timeout %q: %w", overlay.Timeout, err)
		}
		rc.Timeout = d
	}
	if len(rc.Suites) == 0 && len(overlay.Suites) > 0 {
		rc.Suites = overlay.Suites
	}
	if !rc.FailFast {
		rc.FailFast = overlay.FailFast
	}
	if !rc.Strict {
		rc.Strict = overlay.Strict
	}
	return nil
}

// Validate enforces the invariants the core relies on; failure here maps to
// exit code 2 (spec §4.7).
func (rc *RunConfig) Validate() error {
	switch rc.Transport {
	case TransportStdio:
		if rc.Command == "" {
			return fmt.Errorf("config: stdio transport requires a command")
		}
	case TransportHTTP:
		if rc.URL == "" {
			return fmt.Errorf("config: http transport requires a url")
		}
	case "":
		return fmt.Errorf("config: transport is required (stdio or http)")
	default:
		return fmt.Errorf("config: unknown transport %q (sse is not a standalone transport; use http)", rc.Transport)
	}
	if rc.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	switch rc.OutputFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unknown output format %q", rc.OutputFormat)
	}
	return nil
}
