package checks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heliod-project/heliconf/internal/artifact"
	"github.com/heliod-project/heliconf/internal/domain"
	"github.com/heliod-project/heliconf/internal/supervisor"
)

// daemonGroup runs the long-lived daemon scenarios: clean lifecycle,
// override detection via the file watch, repeated and rapid artifact
// rewrites. The daemon runs in the background while the harness keeps
// issuing CLI commands against the same sandbox.
func (s *Suite) daemonGroup(ctx context.Context) {
	for _, impl := range s.impls {
		s.checkLifecycle(ctx, impl)
		s.checkSetDetection(ctx, impl)
		s.checkMultipleOverrides(ctx, impl)
		s.checkSetResumeCycle(ctx, impl)
		s.checkRapidFire(ctx, impl)
	}
}

// startDaemon provisions nothing itself; it seeds the sandbox with a
// location and brings the daemon to a classified state. A nil process
// means the check was already concluded (skip or fail recorded).
func (s *Suite) startDaemon(ctx context.Context, impl domain.Implementation, sb *domain.Sandbox, name string) *supervisor.ManagedProcess {
	if res := s.setLocation(ctx, impl, sb); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("--set-location exit=%d", res.ExitCode))
		return nil
	}
	p, reason, err := s.sup.Start(impl.Binary, sb.Env(), 0)
	if err != nil {
		s.ledger.Fail(name, err.Error())
		return nil
	}
	if reason != "" {
		if supervisor.ReasonIsPrecondition(reason) {
			s.ledger.Skip(name, reason)
		} else {
			s.ledger.Fail(name, reason)
		}
		return nil
	}
	return p
}

func (s *Suite) checkLifecycle(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "daemon lifecycle (start, SIGTERM, clean exit)")
	if s.skipMissing(impl, "daemon lifecycle") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	p := s.startDaemon(ctx, impl, sb, name)
	if p == nil {
		return
	}
	defer s.sup.Kill(p)

	output, dead := s.sup.Stop(p, 0)
	if !dead {
		s.ledger.Fail(name, "daemon survived SIGTERM and SIGKILL escalation")
		return
	}
	if strings.Contains(strings.ToLower(output), "shutting down") {
		s.ledger.OK(name + ": clean shutdown logged")
		return
	}
	s.ledger.OK(name + ": responds to SIGTERM")
}

// checkSetDetection verifies the daemon notices an override written while
// it is running and fills in start_temp.
func (s *Suite) checkSetDetection(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "daemon detects --set while running")
	if s.skipMissing(impl, "daemon --set detection") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	p := s.startDaemon(ctx, impl, sb, name)
	if p == nil {
		return
	}
	defer s.sup.Kill(p)

	if res := s.run(ctx, impl, sb, "--set", "2900", "1"); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("--set exit=%d", res.ExitCode))
		return
	}
	s.settle()

	if !p.Alive() {
		s.ledger.Fail(name, "daemon died after override write:\n"+p.OutputTail(5))
		return
	}
	ov, _, err := artifact.LoadOverride(sb.OverrideFile)
	if err != nil {
		s.ledger.Fail(name, fmt.Sprintf("override artifact unreadable: %v", err))
		return
	}
	if !ov.Active || ov.TargetTemp != 2900 {
		s.ledger.Fail(name, fmt.Sprintf("artifact active=%v target_temp=%d after settle",
			ov.Active, ov.TargetTemp))
		return
	}

	output, _ := s.sup.Stop(p, 0)
	if !mentionsOverride(output) {
		s.ledger.Fail(name, "daemon output never mentions the override:\n"+excerpt(output, 300))
		return
	}
	s.ledger.OK(name)
}

// checkMultipleOverrides rewrites the override artifact three times with a
// settle delay between each; the notification-based watch must survive
// every cycle without a daemon restart.
func (s *Suite) checkMultipleOverrides(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "daemon survives repeated override rewrites")
	if s.skipMissing(impl, "repeated overrides") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	p := s.startDaemon(ctx, impl, sb, name)
	if p == nil {
		return
	}
	defer s.sup.Kill(p)

	sets := []struct{ temp, minutes int }{{2900, 1}, {4500, 5}, {6500, 0}}
	for i, set := range sets {
		res := s.run(ctx, impl, sb, "--set", strconv.Itoa(set.temp), strconv.Itoa(set.minutes))
		if res.ExitCode != 0 {
			s.ledger.Fail(name, fmt.Sprintf("--set #%d exit=%d", i+1, res.ExitCode))
			return
		}
		s.settle()
		if !p.Alive() {
			s.ledger.Fail(name, fmt.Sprintf("daemon died after override #%d:\n%s",
				i+1, p.OutputTail(5)))
			return
		}
	}

	output, _ := s.sup.Stop(p, 0)
	switch n := countOverrideMentions(output); {
	case n >= len(sets):
		s.ledger.OK(fmt.Sprintf("%s: all %d observed", name, len(sets)))
	case n >= 1:
		// Close rewrites may be coalesced by the watch mechanism; observing
		// at least one proves the watch path works.
		s.ledger.OK(fmt.Sprintf("%s: %d observed (coalesced)", name, n))
	default:
		s.ledger.Fail(name, "no override ever observed:\n"+excerpt(output, 300))
	}
}

// checkSetResumeCycle exercises set, resume back to solar, then a second
// set with a different temperature: the idempotent cycle that proves the
// watch survives artifact reuse.
func (s *Suite) checkSetResumeCycle(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "set/resume/set cycle")
	if s.skipMissing(impl, "set/resume/set cycle") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	p := s.startDaemon(ctx, impl, sb, name)
	if p == nil {
		return
	}
	defer s.sup.Kill(p)

	if res := s.run(ctx, impl, sb, "--set", "2900", "1"); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("first --set exit=%d", res.ExitCode))
		return
	}
	s.settle()

	if res := s.run(ctx, impl, sb, "--resume"); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("--resume exit=%d", res.ExitCode))
		return
	}
	s.settle()
	if ov, _, err := artifact.LoadOverride(sb.OverrideFile); err == nil && ov.Active {
		s.ledger.Fail(name, "override still active after --resume")
		return
	}

	if res := s.run(ctx, impl, sb, "--set", "5000", "3"); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("second --set exit=%d", res.ExitCode))
		return
	}
	s.settle()

	ov, _, err := artifact.LoadOverride(sb.OverrideFile)
	if err != nil {
		s.ledger.Fail(name, fmt.Sprintf("artifact unreadable after second set: %v", err))
		return
	}
	if !ov.Active || ov.TargetTemp != 5000 {
		s.ledger.Fail(name, fmt.Sprintf("second set not honored: active=%v target_temp=%d",
			ov.Active, ov.TargetTemp))
		return
	}
	if !p.Alive() {
		s.ledger.Fail(name, "daemon died during cycle:\n"+p.OutputTail(5))
		return
	}

	output, _ := s.sup.Stop(p, 0)
	if mentionsOverride(output) && mentionsResume(output) {
		s.ledger.OK(name + ": both transitions logged")
		return
	}
	s.ledger.OK(name)
}

// checkRapidFire rewrites the override five times at 200ms spacing; the
// daemon must stay alive and the final artifact must win.
func (s *Suite) checkRapidFire(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "rapid-fire overrides (5 in 1s)")
	if s.skipMissing(impl, "rapid-fire overrides") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	p := s.startDaemon(ctx, impl, sb, name)
	if p == nil {
		return
	}
	defer s.sup.Kill(p)

	temps := []int{2000, 3000, 4000, 5000, 6500}
	for _, temp := range temps {
		res := s.run(ctx, impl, sb, "--set", strconv.Itoa(temp), "1")
		if res.ExitCode != 0 {
			s.ledger.Fail(name, fmt.Sprintf("--set %d exit=%d", temp, res.ExitCode))
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	time.Sleep(3 * time.Second)

	if !p.Alive() {
		s.ledger.Fail(name, "daemon died under rapid rewrites:\n"+p.OutputTail(5))
		return
	}
	ov, _, err := artifact.LoadOverride(sb.OverrideFile)
	if err != nil {
		s.ledger.Fail(name, fmt.Sprintf("final artifact unreadable: %v", err))
		return
	}
	if !ov.Active || ov.TargetTemp != temps[len(temps)-1] {
		s.ledger.Fail(name, fmt.Sprintf("final artifact active=%v target_temp=%d, want active 6500",
			ov.Active, ov.TargetTemp))
		return
	}

	_, dead := s.sup.Stop(p, 0)
	if !dead {
		s.ledger.Fail(name, "daemon would not shut down after rapid fire")
		return
	}
	s.ledger.OK(name)
}

func mentionsOverride(output string) bool {
	lo := strings.ToLower(output)
	return strings.Contains(lo, "override") || strings.Contains(lo, "manual")
}

func mentionsResume(output string) bool {
	lo := strings.ToLower(output)
	return strings.Contains(lo, "resume") || strings.Contains(lo, "solar") ||
		strings.Contains(lo, "cleared")
}

func countOverrideMentions(output string) int {
	n := 0
	for _, line := range strings.Split(strings.ToLower(output), "\n") {
		if strings.Contains(line, "override") || strings.Contains(line, "manual") {
			n++
		}
	}
	return n
}
