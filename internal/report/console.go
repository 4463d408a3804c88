package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// WriteConsole renders a human-readable report, one line per check, grouped
// by suite, followed by a summary line. noColor disables ANSI output for
// --no-color / NO_COLOR / non-TTY destinations.
func WriteConsole(w io.Writer, r *Report, noColor bool) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	gray := color.New(color.FgHiBlack)
	if noColor {
		color.NoColor = true
	}

	_, _ = cyan.Fprintf(w, "mcp-probe %s — target %s (%s transport)\n", r.ProbeVersion, r.Target, r.Transport)
	if r.Aborted {
		_, _ = red.Fprintf(w, "run aborted: %s\n", r.AbortReason)
	}
	fmt.Fprintln(w)

	var totalPass, totalFail, totalWarn, totalSkip int
	for _, s := range r.Suites {
		_, _ = cyan.Fprintf(w, "[%s]\n", s.Name)
		for _, c := range s.Checks {
			statusColor := statusColorFor(c.Status, green, red, yellow, gray)
			_, _ = statusColor.Fprintf(w, "  %-6s %s  %s", c.Status, c.ID, c.Description)
			if c.Detail != "" {
				_, _ = gray.Fprintf(w, " (%s)", c.Detail)
			}
			fmt.Fprintln(w)
		}
		totalPass += s.Passed
		totalFail += s.Failed
		totalWarn += s.Warned
		totalSkip += s.Skipped
		fmt.Fprintln(w)
	}

	_, _ = cyan.Fprintf(w, "summary: ")
	_, _ = green.Fprintf(w, "%d passed", totalPass)
	fmt.Fprint(w, ", ")
	_, _ = red.Fprintf(w, "%d failed", totalFail)
	fmt.Fprint(w, ", ")
	_, _ = yellow.Fprintf(w, "%d warned", totalWarn)
	fmt.Fprint(w, ", ")
	_, _ = gray.Fprintf(w, "%d skipped", totalSkip)
	fmt.Fprintln(w)
}

func statusColorFor(status string, green, red, yellow, gray *color.Color) *color.Color {
	switch status {
	case "PASS":
		return green
	case "FAIL":
		return red
	case "WARN":
		return yellow
	default:
		return gray
	}
}
