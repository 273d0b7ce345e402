// Package trace wraps daemon execution in strace and parses its aggregated
// count-by-syscall summary into a profile. The profile proves architectural
// properties - event-loop mechanism, sandbox installation - without access
// to the daemon's source.
package trace

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
	"github.com/heliod-project/heliconf/internal/supervisor"
)

const (
	// ObservationWindow is how long the daemon runs under the tracer
	// before the wrapper sends SIGTERM.
	ObservationWindow = 6 * time.Second
	// killGrace is the wrapper's SIGTERM-to-SIGKILL grace period.
	killGrace = 3
	// outerWait bounds the whole traced run; the tracer plus wrapper are
	// expected to finish well inside it.
	outerWait = 20 * time.Second
)

// EventLoopSyscall must appear once the daemon reaches steady state: proof
// it entered its bounded-concurrency I/O readiness loop.
const EventLoopSyscall = "io_uring_enter"

// SandboxSyscalls prove a restrictive security sandbox was installed;
// either one suffices.
var SandboxSyscalls = []string{"landlock_create_ruleset", "landlock_add_rule"}

// FallbackSyscalls is the denylist of legacy polling mechanisms that a
// conforming daemon must never fall back to.
var FallbackSyscalls = []string{"select", "pselect6", "timerfd_create", "timerfd_settime"}

// Auditor runs daemons under strace and collects syscall profiles.
type Auditor struct {
	sup    *supervisor.Supervisor
	runner domain.Runner
	logger *zap.Logger
}

// NewAuditor creates an auditor.
func NewAuditor(sup *supervisor.Supervisor, runner domain.Runner, logger *zap.Logger) *Auditor {
	return &Auditor{sup: sup, runner: runner, logger: logger}
}

// Available reports whether strace is installed.
func (a *Auditor) Available(ctx context.Context) bool {
	return a.runner.Run(ctx, "strace", []string{"--version"}, nil, 5*time.Second).ExitCode == 0
}

// Profile traces one daemon run and parses the summary written to outFile.
// The daemon is bounded by an external hard timeout that sends SIGTERM
// first and SIGKILL after a grace period, so the trace terminates and its
// summary gets written even if the daemon does not respond; killing the
// tracer itself would lose the summary.
//
// Returns the profile plus the run's combined diagnostic output (used to
// classify an empty trace as a skip rather than a failure).
func (a *Auditor) Profile(binary string, env []string, outFile string) (*domain.SyscallProfile, string, error) {
	args := []string{
		"-f", "-c", "-o", outFile, "--",
		"timeout", "--signal=SIGTERM", fmt.Sprintf("--kill-after=%d", killGrace),
		strconv.Itoa(int(ObservationWindow / time.Second)),
		binary, "--daemon",
	}
	p, err := a.sup.SpawnCommand("strace", args, env)
	if err != nil {
		return nil, "", fmt.Errorf("start strace: %w", err)
	}

	if !p.WaitTimeout(outerWait) {
		a.logger.Warn("traced run exceeded outer bound, killing", zap.Int("pid", p.PID()))
		a.sup.Kill(p)
		return nil, "", fmt.Errorf("traced run did not finish within %s", outerWait)
	}
	output := p.Output()
	a.sup.Kill(p) // already dead; unregisters and releases the capture file

	profile, err := ParseSummaryFile(outFile)
	if err != nil {
		return nil, output, err
	}
	return profile, output, nil
}

// ParseSummaryFile parses a strace -c summary file.
func ParseSummaryFile(path string) (*domain.SyscallProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace summary: %w", err)
	}
	defer f.Close()
	return ParseSummary(f)
}

// ParseSummary parses the tabular strace -c output. Data rows have five
// columns (time%, seconds, usecs/call, calls, name) or six when an errors
// column is present; the syscall name is always the last token. The total
// row carries the aggregate call count in its fourth column.
func ParseSummary(r io.Reader) (*domain.SyscallProfile, error) {
	profile := &domain.SyscallProfile{Syscalls: make(map[string]bool)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "-") {
			continue
		}
		parts := strings.Fields(line)
		if strings.Contains(line, "total") && line[0] >= '0' && line[0] <= '9' {
			if len(parts) >= 5 {
				if n, err := strconv.Atoi(parts[3]); err == nil {
					profile.TotalCalls = n
				}
			}
			continue
		}
		if len(parts) < 5 {
			continue
		}
		name := parts[len(parts)-1]
		if name == "total" || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "%") {
			continue
		}
		profile.Syscalls[name] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace summary: %w", err)
	}
	return profile, nil
}

// FoundFallbacks returns the denylisted syscalls present in the profile.
func FoundFallbacks(p *domain.SyscallProfile) []string {
	var found []string
	for _, name := range FallbackSyscalls {
		if p.Has(name) {
			found = append(found, name)
		}
	}
	return found
}

// HasSandbox reports whether any sandboxing syscall appears in the profile.
func HasSandbox(p *domain.SyscallProfile) bool {
	for _, name := range SandboxSyscalls {
		if p.Has(name) {
			return true
		}
	}
	return false
}
