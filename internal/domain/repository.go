package domain

import (
	"context"
	"os"
	"time"
)

// Runner executes a binary with a bounded timeout and captures its output.
// Never returns an error for non-zero exits; "binary not found" and
// "timed out" surface as the sentinel exit codes.
type Runner interface {
	// Run executes argv[0] with the given arguments and environment.
	// A zero timeout applies the runner's default.
	Run(ctx context.Context, binary string, args []string, env []string, timeout time.Duration) CmdResult

	// RunIn is Run with an explicit working directory, used by build steps.
	RunIn(ctx context.Context, dir, binary string, args []string, env []string, timeout time.Duration) CmdResult
}

// Provisioner creates and destroys isolated test environments.
type Provisioner interface {
	// Provision creates a uniquely-named home tree with a config
	// subdirectory and an environment overlay pointing HOME at it.
	Provision() (*Sandbox, error)

	// Teardown removes the whole tree. It must not fail the test: errors
	// are logged and swallowed. Safe to call on an already-removed sandbox.
	Teardown(sb *Sandbox)
}

// ProcessManager handles OS process liveness and group signaling.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// Children returns PIDs of live descendants of pid.
	Children(pid int) ([]int, error)

	// SignalGroup delivers sig to the whole process group of pid.
	SignalGroup(pid int, sig os.Signal) error
}

// Ledger accumulates pass/fail/skip outcomes and renders the final report.
// It is the only component every check writes to.
type Ledger interface {
	Section(name string)
	OK(msg string) bool
	Fail(msg, detail string) bool
	Skip(msg, reason string)
	// Compare prints an informational comparison row (no outcome recorded).
	Compare(label string, a, b float64, unit string)

	Passed() int
	Failed() int
	Skipped() int
}
