package supervisor

import (
	"fmt"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
)

// DefaultStartupWait is how long Start lets the daemon initialize before
// classifying its state.
const DefaultStartupWait = 3 * time.Second

// DefaultStopTimeout bounds a clean SIGTERM shutdown before escalation.
const DefaultStopTimeout = 15 * time.Second

// steadyStateMarkers prove the daemon finished initialization and entered
// its main wait loop.
var steadyStateMarkers = []string{"io_uring", "daemon started", "1 syscall/tick"}

// ReachedSteadyState reports whether daemon output shows it reached the
// main event loop.
func ReachedSteadyState(output string) bool {
	lo := strings.ToLower(output)
	for _, m := range steadyStateMarkers {
		if strings.Contains(lo, m) {
			return true
		}
	}
	return false
}

// backendFailureText reports whether output points at a missing or failing
// gamma backend, the legitimate non-defect skip condition.
func backendFailureText(output string) bool {
	lo := strings.ToLower(output)
	return strings.Contains(lo, "gamma") || strings.Contains(lo, "backend")
}

// retryLoopText reports whether output shows the daemon churning in its
// backend init retry loop.
func retryLoopText(output string) bool {
	lo := strings.ToLower(output)
	return strings.Contains(lo, "gamma") || strings.Contains(lo, "drm") ||
		strings.Contains(output, "Failed")
}

// Supervisor launches daemons in their own process groups, tracks their
// liveness, and reclaims them on every teardown path.
type Supervisor struct {
	registry *Registry
	pm       domain.ProcessManager
	logger   *zap.Logger
}

// New creates a supervisor. Every process it starts is entered into the
// given registry for crash-safe cleanup.
func New(registry *Registry, pm domain.ProcessManager, logger *zap.Logger) *Supervisor {
	return &Supervisor{registry: registry, pm: pm, logger: logger}
}

// Spawn launches the daemon detached into its own process group and
// registers it, with no startup classification. The Timing Verifier uses
// this to land signals at exact lifecycle phases.
func (s *Supervisor) Spawn(binary string, env []string) (*ManagedProcess, error) {
	return s.SpawnCommand(binary, []string{"--daemon"}, env)
}

// SpawnCommand is Spawn with an arbitrary argv, used by the syscall
// auditor to launch the daemon under a tracing wrapper. The process still
// lands in the active registry.
func (s *Supervisor) SpawnCommand(binary string, args []string, env []string) (*ManagedProcess, error) {
	p, err := spawn(binary, args, env)
	if err != nil {
		return nil, fmt.Errorf("spawn daemon: %w", err)
	}
	s.registry.Register(p)
	s.logger.Debug("daemon spawned",
		zap.String("binary", binary),
		zap.Int("pid", p.PID()),
		zap.Int("pgid", p.PGID()))
	return p, nil
}

// Start launches the daemon and waits startupWait for it to initialize.
// A nil process with a non-empty reason means the daemon is unusable; use
// ReasonIsPrecondition to tell legitimate skips from hard failures.
//
// Classifications after the wait:
//   - exited with output mentioning gamma/backend: precondition skip
//   - exited otherwise: hard failure, reason carries exit code and excerpt
//   - alive but never reached steady state while emitting retry/error
//     text: stuck in backend init; terminated here and reported as a skip.
//     A stuck process is never left running.
func (s *Supervisor) Start(binary string, env []string, startupWait time.Duration) (*ManagedProcess, string, error) {
	if startupWait <= 0 {
		startupWait = DefaultStartupWait
	}
	p, err := s.Spawn(binary, env)
	if err != nil {
		return nil, "", err
	}
	time.Sleep(startupWait)

	output := p.Output()
	if !p.Alive() {
		s.registry.Unregister(p)
		p.cleanupFiles()
		if backendFailureText(output) {
			return nil, "no gamma backend", nil
		}
		return nil, fmt.Sprintf("exited code=%d: %s", p.ExitCode(), excerpt(output, 200)), nil
	}

	if !ReachedSteadyState(output) && retryLoopText(output) {
		s.logger.Debug("daemon stuck in backend retry, terminating",
			zap.Int("pid", p.PID()))
		p.forceKill()
		s.registry.Unregister(p)
		p.cleanupFiles()
		return nil, "stuck in gamma init (no backend)", nil
	}

	p.setState(domain.ProcAlive)
	return p, "", nil
}

// Stop sends SIGTERM to the process and waits up to timeout; if it does
// not exit, escalates to SIGKILL on the whole group. Returns the captured
// output and whether the process is confirmed dead.
func (s *Supervisor) Stop(p *ManagedProcess, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	// Snapshot helper children before signaling; once the daemon exits
	// the kernel reparents them and they can no longer be enumerated.
	kids, _ := s.pm.Children(p.PID())

	_ = p.Signal(syscall.SIGTERM)
	dead := p.WaitTimeout(timeout)
	if !dead {
		s.logger.Warn("daemon ignored SIGTERM, escalating to SIGKILL",
			zap.Int("pid", p.PID()))
		_ = p.SignalGroup(syscall.SIGKILL)
		dead = p.WaitTimeout(5 * time.Second)
	}
	if dead && s.pm.IsRunning(p.PID()) {
		s.logger.Warn("pid still running after reap, duplicate process suspected",
			zap.Int("pid", p.PID()))
		dead = false
	}
	s.reapStragglers(kids)

	s.registry.Unregister(p)
	output := p.Output()
	p.cleanupFiles()
	return output, dead
}

// Kill unconditionally terminates the process group, best effort. Used in
// cleanup paths where the exact outcome is not being tested.
func (s *Supervisor) Kill(p *ManagedProcess) {
	if p == nil {
		return
	}
	kids, _ := s.pm.Children(p.PID())
	p.forceKill()
	s.reapStragglers(kids)
	if s.pm.IsRunning(p.PID()) {
		s.logger.Warn("daemon survived SIGKILL", zap.Int("pid", p.PID()))
	}
	s.registry.Unregister(p)
	p.cleanupFiles()
}

// reapStragglers kills helper children that outlived the daemon. A clean
// SIGTERM goes to the daemon pid only, so a helper the daemon failed to
// tear down keeps running in the group until someone notices.
func (s *Supervisor) reapStragglers(kids []int) {
	for _, pid := range kids {
		if !s.pm.IsRunning(pid) {
			continue
		}
		s.logger.Warn("helper process survived daemon exit, killing its group",
			zap.Int("pid", pid))
		_ = s.pm.SignalGroup(pid, syscall.SIGKILL)
	}
}

// ReasonIsPrecondition distinguishes "backend unavailable" start reasons
// (record as skip) from unexplained early exits (record as failure).
func ReasonIsPrecondition(reason string) bool {
	return !strings.HasPrefix(reason, "exited code=")
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
