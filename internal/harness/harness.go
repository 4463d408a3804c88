// Package harness implements the check-registration and execution model of
// spec §4.4: declarative checks, sorted and run sequentially, each isolated
// so a single crashing check never corrupts the run.
package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"go.uber.org/zap"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
	StatusSkip Status = "SKIP"
	StatusInfo Status = "INFO"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Result is the outcome produced by a check body; returning nil means PASS.
type Result struct {
	Status Status
	Detail string
}

func Pass() *Result                { return &Result{Status: StatusPass} }
func PassDetail(d string) *Result  { return &Result{Status: StatusPass, Detail: d} }
func Fail(d string) *Result        { return &Result{Status: StatusFail, Detail: d} }
func Warn(d string) *Result        { return &Result{Status: StatusWarn, Detail: d} }
func Info(d string) *Result        { return &Result{Status: StatusInfo, Detail: d} }

// Skip is a distinguished error a check body returns (instead of a Result)
// to signal SKIP with a reason — it satisfies the `error` interface so a
// check body can simply `return nil, Skip("reason")`.
type Skip string

func (s Skip) Error() string { return string(s) }

// CheckFunc is the body of one check. It may return (result, nil) to adopt
// an explicit outcome, (nil, nil) to synthesize a PASS, (nil, Skip(...))
// to skip, or (nil, err) for any other failure.
type CheckFunc func(ctx context.Context) (*Result, error)

// Check is one declaratively-registered conformance test.
type Check struct {
	ID          string
	Description string
	Severity    Severity
	Run         CheckFunc
}

// CheckResult is the immutable outcome of one executed Check.
type CheckResult struct {
	ID          string
	Description string
	Status      Status
	Severity    Severity
	DurationMS  int64
	Detail      string
}

// Suite is a named, ordered collection of checks.
type Suite struct {
	Name   string
	Checks []Check
}

// SuiteResult is a suite identifier plus its ordered CheckResults.
type SuiteResult struct {
	Name   string
	Checks []CheckResult
}

// Run executes every check in s, sorted by ID ascending (stable,
// lexicographic), sequentially, each isolated per spec §4.4. The harness
// contract guarantees exactly one CheckResult per declared check.
func Run(ctx context.Context, s Suite, logger *zap.Logger) SuiteResult {
	sorted := make([]Check, len(s.Checks))
	copy(sorted, s.Checks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := SuiteResult{Name: s.Name, Checks: make([]CheckResult, 0, len(sorted))}
	for _, chk := range sorted {
		out.Checks = append(out.Checks, runOne(ctx, chk, logger))
	}
	return out
}

func runOne(ctx context.Context, chk Check, logger *zap.Logger) (cr CheckResult) {
	cr = CheckResult{ID: chk.ID, Description: chk.Description, Severity: chk.Severity}
	start := time.Now()
	defer func() {
		cr.DurationMS = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			logger.Debug("check panicked", zap.String("id", chk.ID), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			cr.Status = StatusFail
			cr.Detail = fmt.Sprintf("panic: %v", r)
		}
	}()

	result, err := chk.Run(ctx)
	if err != nil {
		if skip, ok := err.(Skip); ok {
			cr.Status = StatusSkip
			cr.Detail = string(skip)
			return cr
		}
		logger.Debug("check failed", zap.String("id", chk.ID), zap.Error(err))
		cr.Status = StatusFail
		cr.Detail = err.Error()
		return cr
	}
	if result == nil {
		cr.Status = StatusPass
		return cr
	}
	cr.Status = result.Status
	cr.Detail = result.Detail
	return cr
}
