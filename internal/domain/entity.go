// Package domain contains core entities and interfaces of the conformance
// harness. This is the innermost layer - no external dependencies.
package domain

import "time"

// Status is the tri-state outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Outcome is one recorded check result. Detail carries a truncated
// diagnostic excerpt for failures, or the reason for skips.
type Outcome struct {
	Status  Status
	Message string
	Detail  string
}

// Implementation is one daemon binary under test.
type Implementation struct {
	Name   string // display name, e.g. "C23", "Rust", "Rust-musl"
	Binary string // path to the built binary
	Static bool   // statically linked variant (optional target)

	// Build phase configuration. Empty Commands means nothing to build.
	BuildDir      string
	BuildCommands []BuildCommand
}

// BuildCommand is one step of an implementation's build.
type BuildCommand struct {
	Argv    []string
	Timeout time.Duration
	// SkipPatterns mark stderr content that downgrades a build failure to a
	// skip (e.g. cross target toolchain not installed).
	SkipPatterns []string
}

// Sandbox is an exclusively-owned ephemeral home directory tree used to
// redirect a daemon's file I/O. Destroyed at end of test regardless of
// outcome.
type Sandbox struct {
	Home         string
	ConfigDir    string
	ConfigFile   string // location artifact (config.ini)
	OverrideFile string // override artifact (override.json)
	env          []string
}

// NewSandbox builds a Sandbox value. env must already contain the
// substituted HOME entry.
func NewSandbox(home, configDir, configFile, overrideFile string, env []string) *Sandbox {
	return &Sandbox{
		Home:         home,
		ConfigDir:    configDir,
		ConfigFile:   configFile,
		OverrideFile: overrideFile,
		env:          env,
	}
}

// Env returns the environment overlay for processes run inside the sandbox.
// The slice is copied so callers may append to it freely.
func (s *Sandbox) Env() []string {
	out := make([]string, len(s.env))
	copy(out, s.env)
	return out
}

// Command runner sentinel exit codes. Real exit codes are never negative,
// so checkers can branch on these uniformly instead of handling errors.
const (
	ExitTimeout  = -1
	ExitNotFound = -2
)

// CmdResult is the captured outcome of one bounded command invocation.
type CmdResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout and stderr concatenated. Implementations disagree
// on which stream carries usage and status text.
func (r CmdResult) Combined() string {
	return r.Stdout + r.Stderr
}

// TimedOut reports whether the command hit its deadline.
func (r CmdResult) TimedOut() bool { return r.ExitCode == ExitTimeout }

// NotFound reports whether the binary was missing.
func (r CmdResult) NotFound() bool { return r.ExitCode == ExitNotFound }

// ProcState tracks the lifecycle of a supervised daemon process.
type ProcState string

const (
	ProcStarting ProcState = "starting"
	ProcAlive    ProcState = "alive"
	ProcExited   ProcState = "exited"
	ProcKilled   ProcState = "killed"
)

// Override is the persisted manual-override artifact. The field set is a
// cross-implementation contract: exactly these five keys, no more.
type Override struct {
	Active          bool    `json:"active"`
	TargetTemp      int     `json:"target_temp"`
	DurationMinutes int     `json:"duration_minutes"`
	IssuedAt        float64 `json:"issued_at"`
	StartTemp       int     `json:"start_temp"`
}

// SyscallProfile is the aggregated trace summary of one daemon run.
type SyscallProfile struct {
	Syscalls   map[string]bool
	TotalCalls int
}

// Has reports whether the named syscall appeared in the trace.
func (p *SyscallProfile) Has(name string) bool {
	return p != nil && p.Syscalls[name]
}

// Empty reports whether the trace recorded no syscalls at all, the
// distinguished "daemon never reached the measured point" condition.
func (p *SyscallProfile) Empty() bool {
	return p == nil || len(p.Syscalls) == 0
}
