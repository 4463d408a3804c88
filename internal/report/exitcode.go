package report

// Exit codes per spec §4.7. ExitConfigError and ExitInterrupted are not
// computed here: a config validation failure never reaches a Report, and an
// interrupt is detected by the composition root's signal handler.
const (
	ExitOK           = 0
	ExitCheckFailure = 1
	ExitConfigError  = 2
	ExitInterrupted  = 130
)

// ExitCode computes the process exit code from the aggregated check
// statuses. Outside strict mode, only a CRITICAL or ERROR severity FAIL
// fails the run; in strict mode, any WARNING-or-above FAIL or WARN also
// does.
func ExitCode(r *Report, strict bool) int {
	for _, s := range r.Suites {
		for _, c := range s.Checks {
			switch c.Status {
			case "FAIL":
				if c.Severity == "CRITICAL" || c.Severity == "ERROR" {
					return ExitCheckFailure
				}
				if strict && c.Severity == "WARNING" {
					return ExitCheckFailure
				}
			case "WARN":
				if strict && c.Severity != "INFO" {
					return ExitCheckFailure
				}
			}
		}
	}
	return ExitOK
}
