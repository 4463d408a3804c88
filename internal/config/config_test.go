package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateRequiresTransport(t *testing.T) {
	rc := &RunConfig{Timeout: time.Second}
	require.ErrorContains(t, rc.Validate(), "transport is required")
}

func TestValidateStdioRequiresCommand(t *testing.T) {
	rc := &RunConfig{Transport: TransportStdio, Timeout: time.Second}
	require.ErrorContains(t, rc.Validate(), "requires a command")
}

func TestValidateHTTPRequiresURL(t *testing.T) {
	rc := &RunConfig{Transport: TransportHTTP, Timeout: time.Second}
	require.ErrorContains(t, rc.Validate(), "requires a url")
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	rc := &RunConfig{Transport: "sse", Timeout: time.Second}
	err := rc.Validate()
	require.ErrorContains(t, err, "sse is not a standalone transport")
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	rc := &RunConfig{Transport: TransportStdio, Command: "./server", Timeout: 0}
	require.ErrorContains(t, rc.Validate(), "timeout must be positive")
}

func TestValidateRejectsUnknownOutputFormat(t *testing.T) {
	rc := &RunConfig{Transport: TransportStdio, Command: "./server", Timeout: time.Second, OutputFormat: "xml"}
	require.ErrorContains(t, rc.Validate(), "unknown output format")
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	rc := &RunConfig{Transport: TransportHTTP, URL: "http://localhost:8080/mcp", Timeout: 5 * time.Second, OutputFormat: "json"}
	require.NoError(t, rc.Validate())
}

func TestApplyOverlayFillsOnlyZeroValues(t *testing.T) {
	rc := &RunConfig{
		Transport: TransportHTTP,
		URL:       "http://flag-wins/mcp",
	}
	overlay := &fileOverlay{
		Transport: "stdio",
		URL:       "http://overlay-loses/mcp",
		Command:   "./from-overlay",
		Timeout:   "15s",
		Suites:    []string{"tools", "resources"},
		FailFast:  true,
		Strict:    true,
	}
	require.NoError(t, ApplyOverlay(rc, overlay))

	require.Equal(t, TransportHTTP, rc.Transport)       // flag already set, overlay ignored
	require.Equal(t, "http://flag-wins/mcp", rc.URL)    // flag wins
	require.Equal(t, "./from-overlay", rc.Command)      // flag left zero, overlay fills
	require.Equal(t, 15*time.Second, rc.Timeout)        // overlay fills
	require.Equal(t, []string{"tools", "resources"}, rc.Suites)
	require.True(t, rc.FailFast)
	require.True(t, rc.Strict)
}

func TestApplyOverlayNilIsNoop(t *testing.T) {
	rc := &RunConfig{Transport: TransportStdio, Command: "./server"}
	require.NoError(t, ApplyOverlay(rc, nil))
	require.Equal(t, TransportStdio, rc.Transport)
}

func TestApplyOverlayRejectsInvalidTimeout(t *testing.T) {
	rc := &RunConfig{}
	overlay := &fileOverlay{Timeout: "not-a-duration"}
	require.ErrorContains(t, ApplyOverlay(rc, overlay), "invalid timeout")
}

func TestLoadOverlayParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: http\nurl: http://example.com/mcp\nfail_fast: true\n"), 0o644))

	overlay, err := LoadOverlay(path)
	require.NoError(t, err)
	require.Equal(t, "http", overlay.Transport)
	require.Equal(t, "http://example.com/mcp", overlay.URL)
	require.True(t, overlay.FailFast)
}

func TestLoadOverlayMissingFileErrors(t *testing.T) {
	_, err := LoadOverlay(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
