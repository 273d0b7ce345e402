package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/heliod-project/heliconf/internal/domain"
	"github.com/heliod-project/heliconf/internal/infra"
	"github.com/heliod-project/heliconf/internal/supervisor"
)

// signalsGroup enforces the signal deadline at every daemon lifecycle
// phase, then once more with the gamma backend deliberately broken to
// stress the init retry loop. A daemon that masks SIGTERM during retry
// becomes an orphan its service manager cannot see; this group exists to
// catch exactly that regression.
func (s *Suite) signalsGroup(ctx context.Context) {
	phases := supervisor.StandardPhases(s.cfg.Timing.PhaseDelays)

	for _, impl := range s.impls {
		if s.skipMissing(impl, "SIGTERM responsiveness") {
			continue
		}
		sb, teardown, ok := s.sandbox(label(impl, "SIGTERM responsiveness"))
		if !ok {
			continue
		}
		if res := s.setLocation(ctx, impl, sb); res.ExitCode != 0 {
			s.ledger.Fail(label(impl, "SIGTERM responsiveness"),
				fmt.Sprintf("--set-location exit=%d", res.ExitCode))
			teardown()
			continue
		}

		for _, phase := range phases {
			outcome := s.verifier.AssertSignalDeadline(impl.Binary, sb.Env(), phase)
			s.record(fmt.Sprintf("[%s] ", impl.Name), outcome)
		}

		s.checkRetryLoopSignal(impl, sb)
		teardown()
	}
}

// checkRetryLoopSignal forces every gamma backend to fail by pointing
// DISPLAY at a nonexistent server and removing WAYLAND_DISPLAY, landing
// the daemon in its backend retry loop, then requires SIGTERM to still be
// honored there.
func (s *Suite) checkRetryLoopSignal(impl domain.Implementation, sb *domain.Sandbox) {
	env := sb.Env()
	env = infra.SetEnv(env, "DISPLAY", "invalid:99")
	env = infra.DropEnv(env, "WAYLAND_DISPLAY")

	phase := supervisor.Phase{
		Delay: 2 * time.Second,
		Name:  "gamma-retry loop (2.0s, backends forced down)",
	}
	outcome := s.verifier.AssertSignalDeadline(impl.Binary, env, phase)
	s.record(fmt.Sprintf("[%s] ", impl.Name), outcome)
}
