package suites

import (
	"context"
	"testing"

	"github.com/gate4ai/mcp-probe/internal/harness"
	"go.uber.org/zap"
)

func runSuite(t *testing.T, s harness.Suite) harness.SuiteResult {
	t.Helper()
	return harness.Run(context.Background(), s, zap.NewNop())
}

func findCheck(t *testing.T, res harness.SuiteResult, id string) harness.CheckResult {
	t.Helper()
	for _, cr := range res.Checks {
		if cr.ID == id {
			return cr
		}
	}
	t.Fatalf("check %s not found in suite %s", id, res.Name)
	return harness.CheckResult{}
}
