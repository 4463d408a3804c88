package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func reportWith(checks ...SuiteReport) *Report {
	return &Report{Suites: checks}
}

func TestExitCodeOKWhenNothingFails(t *testing.T) {
	r := reportWith(SuiteReport{Checks: []CheckReport{{Status: "PASS", Severity: "CRITICAL"}, {Status: "SKIP", Severity: "WARNING"}}})
	require.Equal(t, ExitOK, ExitCode(r, false))
	require.Equal(t, ExitOK, ExitCode(r, true))
}

func TestExitCodeCriticalFailAlwaysFails(t *testing.T) {
	r := reportWith(SuiteReport{Checks: []CheckReport{{Status: "FAIL", Severity: "CRITICAL"}}})
	require.Equal(t, ExitCheckFailure, ExitCode(r, false))
	require.Equal(t, ExitCheckFailure, ExitCode(r, true))
}

func TestExitCodeErrorFailAlwaysFails(t *testing.T) {
	r := reportWith(SuiteReport{Checks: []CheckReport{{Status: "FAIL", Severity: "ERROR"}}})
	require.Equal(t, ExitCheckFailure, ExitCode(r, false))
	require.Equal(t, ExitCheckFailure, ExitCode(r, true))
}

func TestExitCodeWarningFailOnlyFailsInStrictMode(t *testing.T) {
	r := reportWith(SuiteReport{Checks: []CheckReport{{Status: "FAIL", Severity: "WARNING"}}})
	require.Equal(t, ExitOK, ExitCode(r, false))
	require.Equal(t, ExitCheckFailure, ExitCode(r, true))
}

func TestExitCodeWarnStatusOnlyFailsInStrictMode(t *testing.T) {
	r := reportWith(SuiteReport{Checks: []CheckReport{{Status: "WARN", Severity: "WARNING"}}})
	require.Equal(t, ExitOK, ExitCode(r, false))
	require.Equal(t, ExitCheckFailure, ExitCode(r, true))
}
