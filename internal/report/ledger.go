// Package report implements the results ledger: the running tally of
// pass/fail/skip outcomes and the human-readable final report.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/heliod-project/heliconf/internal/domain"
)

const bannerWidth = 64

// Ledger records check outcomes and renders them as they arrive. It is not
// safe for concurrent use; the harness runs check groups sequentially.
type Ledger struct {
	w        io.Writer
	passed   int
	failed   int
	skipped  int
	sections []string
	outcomes []domain.Outcome
}

// NewLedger creates a ledger writing its report to w.
func NewLedger(w io.Writer) *Ledger {
	return &Ledger{w: w}
}

// Section prints a banner and starts a new check group.
func (l *Ledger) Section(name string) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(l.w, "\n%s\n  %s\n%s\n", rule, name, rule)
	l.sections = append(l.sections, name)
}

// OK records a pass.
func (l *Ledger) OK(msg string) bool {
	fmt.Fprintf(l.w, "  [PASS] %s\n", msg)
	l.passed++
	l.outcomes = append(l.outcomes, domain.Outcome{Status: domain.StatusPass, Message: msg})
	return true
}

// Fail records a failure with an optional indented diagnostic excerpt.
func (l *Ledger) Fail(msg, detail string) bool {
	fmt.Fprintf(l.w, "  [FAIL] %s\n", msg)
	if detail != "" {
		for _, line := range strings.Split(strings.TrimSpace(detail), "\n") {
			fmt.Fprintf(l.w, "         %s\n", line)
		}
	}
	l.failed++
	l.outcomes = append(l.outcomes, domain.Outcome{Status: domain.StatusFail, Message: msg, Detail: detail})
	return false
}

// Skip records a skipped check. Skips never affect the exit status.
func (l *Ledger) Skip(msg, reason string) {
	extra := ""
	if reason != "" {
		extra = fmt.Sprintf(" (%s)", reason)
	}
	fmt.Fprintf(l.w, "  [SKIP] %s%s\n", msg, extra)
	l.skipped++
	l.outcomes = append(l.outcomes, domain.Outcome{Status: domain.StatusSkip, Message: msg, Detail: reason})
}

// Compare prints an informational comparison row with a ratio column.
// No outcome is recorded.
func (l *Ledger) Compare(label string, a, b float64, unit string) {
	aStr := strings.TrimRight(fmt.Sprintf("%12.1f %s", a, unit), " ")
	bStr := strings.TrimRight(fmt.Sprintf("%12.1f %s", b, unit), " ")
	ratio := ""
	if a > 0 {
		ratio = fmt.Sprintf("  (%.1fx)", b/a)
	}
	fmt.Fprintf(l.w, "  %-20s %-20s %-20s%s\n", label, aStr, bStr, ratio)
}

// Printf writes arbitrary table text into the report, used by the binary
// comparison and syscall profile tables.
func (l *Ledger) Printf(format string, args ...any) {
	fmt.Fprintf(l.w, format, args...)
}

// Passed returns the number of recorded passes.
func (l *Ledger) Passed() int { return l.passed }

// Failed returns the number of recorded failures.
func (l *Ledger) Failed() int { return l.failed }

// Skipped returns the number of recorded skips.
func (l *Ledger) Skipped() int { return l.skipped }

// Outcomes returns all recorded outcomes in order.
func (l *Ledger) Outcomes() []domain.Outcome { return l.outcomes }

// Summary prints the final tally and reports whether the run is clean.
func (l *Ledger) Summary() bool {
	total := l.passed + l.failed + l.skipped
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(l.w, "\n%s\n  RESULTS: %d passed, %d failed, %d skipped (of %d)\n%s\n\n",
		rule, l.passed, l.failed, l.skipped, total, rule)
	return l.failed == 0
}

// Ensure Ledger implements domain.Ledger.
var _ domain.Ledger = (*Ledger)(nil)
