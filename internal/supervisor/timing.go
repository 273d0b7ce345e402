package supervisor

import (
	"fmt"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
)

// DefaultSignalDeadline is the maximum allowed time between SIGTERM
// delivery and observed process exit. Exceeding it indicates the
// signal-handling regression class that orphans daemons: a service manager
// believes it restarted the daemon but in fact spawned a duplicate.
const DefaultSignalDeadline = 3 * time.Second

// Phase names the daemon lifecycle point a signal lands in.
type Phase struct {
	Delay time.Duration
	Name  string
}

// StandardPhases returns the three lifecycle windows checked by default:
// during backend init retry, after backend setup, and in the steady-state
// event loop.
func StandardPhases(delays []float64) []Phase {
	names := []string{"gamma-init", "mid-init", "steady-state"}
	phases := make([]Phase, 0, len(delays))
	for i, d := range delays {
		name := fmt.Sprintf("phase-%d", i+1)
		if i < len(names) {
			name = names[i]
		}
		phases = append(phases, Phase{
			Delay: time.Duration(d * float64(time.Second)),
			Name:  fmt.Sprintf("%s (%.1fs)", name, d),
		})
	}
	return phases
}

// TimingVerifier enforces the signal deadline at chosen lifecycle phases.
type TimingVerifier struct {
	sup      *Supervisor
	deadline time.Duration
	logger   *zap.Logger
}

// NewTimingVerifier creates a verifier. A zero deadline applies the
// default.
func NewTimingVerifier(sup *Supervisor, deadline time.Duration, logger *zap.Logger) *TimingVerifier {
	if deadline <= 0 {
		deadline = DefaultSignalDeadline
	}
	return &TimingVerifier{sup: sup, deadline: deadline, logger: logger}
}

// AssertSignalDeadline starts the daemon, sleeps delay to land it in the
// target phase, sends SIGTERM, and requires exit within the deadline
// measured from signal delivery.
//
// Outcomes:
//   - the daemon exited on its own before the signal: skip, not failure
//   - exit within deadline: pass, with the measured latency
//   - no exit within deadline: hard failure, never downgraded - this is
//     the exact defect class the verifier exists to catch. The process is
//     forcibly reaped afterward so it cannot outlive the test.
func (v *TimingVerifier) AssertSignalDeadline(binary string, env []string, phase Phase) domain.Outcome {
	p, err := v.sup.Spawn(binary, env)
	if err != nil {
		return domain.Outcome{
			Status:  domain.StatusSkip,
			Message: fmt.Sprintf("SIGTERM @ %s", phase.Name),
			Detail:  err.Error(),
		}
	}
	defer v.sup.Kill(p)

	time.Sleep(phase.Delay)

	if !p.Alive() {
		return domain.Outcome{
			Status:  domain.StatusSkip,
			Message: fmt.Sprintf("SIGTERM @ %s", phase.Name),
			Detail:  "exited before signal",
		}
	}

	_ = p.Signal(syscall.SIGTERM)
	t0 := time.Now()

	if p.WaitTimeout(v.deadline) {
		elapsed := time.Since(t0)
		return domain.Outcome{
			Status:  domain.StatusPass,
			Message: fmt.Sprintf("SIGTERM @ %s -> exit in %dms", phase.Name, elapsed.Milliseconds()),
		}
	}

	elapsed := time.Since(t0)
	tail := p.OutputTail(5)
	v.logger.Warn("signal deadline exceeded",
		zap.String("phase", phase.Name),
		zap.Duration("elapsed", elapsed),
		zap.Int("pid", p.PID()))
	return domain.Outcome{
		Status: domain.StatusFail,
		Message: fmt.Sprintf("SIGTERM @ %s -> NO EXIT after %dms (signal lost, would create orphan)",
			phase.Name, elapsed.Milliseconds()),
		Detail: "Last output:\n" + tail,
	}
}
