// Package report builds the machine-readable and console renderings of a
// probe run (spec §4.7) and computes the process exit code from the
// aggregated check statuses.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gate4ai/mcp-probe/internal/harness"
	"github.com/gate4ai/mcp-probe/internal/runner"
)

const ProbeVersion = "0.1.0"
const SpecVersion = "2025-06-18"

// CheckReport is the JSON-facing shape of one executed check.
type CheckReport struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Severity    string `json:"severity"`
	DurationMS  int64  `json:"duration_ms"`
	Detail      string `json:"detail,omitempty"`
}

// SuiteReport is one executed suite's checks, plus a rollup count.
type SuiteReport struct {
	Name    string        `json:"name"`
	Checks  []CheckReport `json:"checks"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Warned  int           `json:"warned"`
	Skipped int           `json:"skipped"`
}

// Report is the full JSON document written by --format json (spec §4.7).
type Report struct {
	ProbeVersion string            `json:"probe_version"`
	SpecVersion  string            `json:"spec_version"`
	Target       string            `json:"target"`
	Transport    string            `json:"transport"`
	Timestamp    string            `json:"timestamp"`
	DurationMS   int64             `json:"duration_ms"`
	ServerInfo   json.RawMessage   `json:"server_info,omitempty"`
	Capabilities json.RawMessage   `json:"capabilities,omitempty"`
	Aborted      bool              `json:"aborted"`
	AbortReason  string            `json:"abort_reason,omitempty"`
	Suites       []SuiteReport     `json:"suites"`
	ErrorCodes   map[string]int    `json:"error_codes,omitempty"`
}

// Build assembles a Report from a completed runner.Run.
func Build(run *runner.Run, target string, start time.Time, finished time.Time) *Report {
	r := &Report{
		ProbeVersion: ProbeVersion,
		SpecVersion:  SpecVersion,
		Target:       target,
		Transport:    run.TransportName,
		Timestamp:    start.UTC().Format("2006-01-02T15:04:05Z"),
		DurationMS:   finished.Sub(start).Milliseconds(),
		ServerInfo:   run.ServerInfo,
		Capabilities: run.Capabilities,
		Aborted:      run.Aborted,
		AbortReason:  run.AbortWhy,
	}
	for _, sr := range run.Suites {
		r.Suites = append(r.Suites, buildSuiteReport(sr))
	}
	if len(run.ErrorCodes) > 0 {
		r.ErrorCodes = make(map[string]int, len(run.ErrorCodes))
		for code, count := range run.ErrorCodes {
			r.ErrorCodes[fmt.Sprintf("%d", code)] = count
		}
	}
	return r
}

func buildSuiteReport(sr harness.SuiteResult) SuiteReport {
	out := SuiteReport{Name: sr.Name}
	for _, cr := range sr.Checks {
		out.Checks = append(out.Checks, CheckReport{
			ID:          cr.ID,
			Description: cr.Description,
			Status:      string(cr.Status),
			Severity:    string(cr.Severity),
			DurationMS:  cr.DurationMS,
			Detail:      cr.Detail,
		})
		switch cr.Status {
		case harness.StatusPass:
			out.Passed++
		case harness.StatusFail:
			out.Failed++
		case harness.StatusWarn:
			out.Warned++
		case harness.StatusSkip:
			out.Skipped++
		}
	}
	return out
}

// JSON marshals the report with stable indentation.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
