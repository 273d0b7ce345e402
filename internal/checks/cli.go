package checks

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/heliod-project/heliconf/internal/artifact"
	"github.com/heliod-project/heliconf/internal/domain"
)

// cliGroup drives every implementation through the one-shot CLI protocol:
// help, location, override write, resume, reset, and the rejection edge
// cases.
func (s *Suite) cliGroup(ctx context.Context) {
	for _, impl := range s.impls {
		s.checkHelp(ctx, impl)
		s.checkSetLocation(ctx, impl)
		s.checkStatus(ctx, impl)
		s.checkSetWithoutLocation(ctx, impl)
		s.checkResume(ctx, impl)
		s.checkReset(ctx, impl)
		s.checkEdgeCases(ctx, impl)
	}
}

func (s *Suite) checkHelp(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "--help exits 0 with usage text")
	if s.skipMissing(impl, "--help") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	res := s.run(ctx, impl, sb, "--help")
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("exit=%d\n%s", res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}
	combined := strings.ToLower(res.Combined())
	if !strings.Contains(combined, "usage") && !strings.Contains(combined, "heliod") {
		s.ledger.Fail(name, "no usage text in output")
		return
	}
	s.ledger.OK(name)
}

func (s *Suite) checkSetLocation(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "--set-location writes config artifact")
	if s.skipMissing(impl, "--set-location") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	res := s.setLocation(ctx, impl, sb)
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("exit=%d\n%s", res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}
	content, err := readFile(sb.ConfigFile)
	if err != nil {
		s.ledger.Fail(name, fmt.Sprintf("config artifact missing: %v", err))
		return
	}
	if !artifact.HasLocationTokens(content) {
		s.ledger.Fail(name, "config artifact lacks latitude/longitude tokens:\n"+excerpt(content, 200))
		return
	}
	s.ledger.OK(name)
}

// checkStatus verifies --status echoes the configured location and a
// parseable target temperature.
func (s *Suite) checkStatus(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "--status echoes location and temperature")
	if s.skipMissing(impl, "--status") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	if res := s.setLocation(ctx, impl, sb); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("--set-location exit=%d", res.ExitCode))
		return
	}
	res := s.run(ctx, impl, sb, "--status")
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("exit=%d\n%s", res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}
	if !artifact.ContainsCoordinate(res.Combined(), s.latPrefixes()...) {
		s.ledger.Fail(name, "configured latitude not echoed:\n"+excerpt(res.Combined(), 300))
		return
	}
	if _, ok := artifact.ExtractTemp(res.Combined()); !ok {
		s.ledger.Fail(name, "no parseable target temperature:\n"+excerpt(res.Combined(), 300))
		return
	}
	s.ledger.OK(name)
}

// checkSetWithoutLocation exercises the contract that an override may be
// written before any location is configured.
func (s *Suite) checkSetWithoutLocation(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "--set 2900 1 without prior location")
	if s.skipMissing(impl, "--set") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	before := time.Now()
	res := s.run(ctx, impl, sb, "--set", "2900", "1")
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("exit=%d\n%s", res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}

	raw, err := readFile(sb.OverrideFile)
	if err != nil {
		s.ledger.Fail(name, fmt.Sprintf("override artifact missing: %v", err))
		return
	}
	if err := artifact.ValidateOverride([]byte(raw)); err != nil {
		s.ledger.Fail(name, err.Error())
		return
	}
	ov, _, err := artifact.LoadOverride(sb.OverrideFile)
	if err != nil {
		s.ledger.Fail(name, err.Error())
		return
	}
	switch {
	case !ov.Active:
		s.ledger.Fail(name, "active=false in fresh override")
	case ov.TargetTemp != 2900:
		s.ledger.Fail(name, fmt.Sprintf("target_temp=%d, want 2900", ov.TargetTemp))
	case ov.DurationMinutes != 1:
		s.ledger.Fail(name, fmt.Sprintf("duration_minutes=%d, want 1", ov.DurationMinutes))
	case math.Abs(float64(before.Unix())-ov.IssuedAt) > s.cfg.Tolerances.IssuedAtSec:
		s.ledger.Fail(name, fmt.Sprintf("issued_at=%.0f drifts more than %.0fs from wall clock",
			ov.IssuedAt, s.cfg.Tolerances.IssuedAtSec))
	default:
		s.ledger.OK(name)
	}
}

func (s *Suite) checkResume(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "--resume deactivates override")
	if s.skipMissing(impl, "--resume") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	if res := s.run(ctx, impl, sb, "--set", "3200", "5"); res.ExitCode != 0 {
		s.ledger.Skip(name, fmt.Sprintf("--set failed (exit=%d), covered above", res.ExitCode))
		return
	}
	res := s.run(ctx, impl, sb, "--resume")
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("exit=%d\n%s", res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}
	// The contract allows either removing the artifact or flipping
	// active=false.
	ov, _, err := artifact.LoadOverride(sb.OverrideFile)
	if err != nil {
		s.ledger.OK(name + " (artifact removed)")
		return
	}
	if ov.Active {
		s.ledger.Fail(name, "override still active after --resume")
		return
	}
	s.ledger.OK(name + " (active=false)")
}

func (s *Suite) checkReset(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "--reset clears override")
	if s.skipMissing(impl, "--reset") {
		return
	}
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	res := s.run(ctx, impl, sb, "--reset")
	combined := strings.ToLower(res.Combined())
	switch {
	case strings.Contains(combined, "reset"):
		s.ledger.OK(name)
	case strings.Contains(combined, "gamma") || strings.Contains(combined, "backend"):
		// Reset touches the gamma hardware; without a display that is a
		// legitimate environment limitation, not a protocol violation.
		s.ledger.Skip(name, "no gamma backend for reset")
	default:
		s.ledger.Fail(name, fmt.Sprintf("exit=%d, no reset confirmation\n%s",
			res.ExitCode, excerpt(res.Combined(), 200)))
	}
}

func (s *Suite) checkEdgeCases(ctx context.Context, impl domain.Implementation) {
	cases := []struct {
		check string
		args  []string
	}{
		{"--set 999999 1 rejected", []string{"--set", "999999", "1"}},
		{"unknown flag rejected", []string{"--frobnicate"}},
		{"--set with no arguments rejected", []string{"--set"}},
	}
	for _, tc := range cases {
		name := label(impl, tc.check)
		if s.skipMissing(impl, tc.check) {
			continue
		}
		sb, teardown, ok := s.sandbox(name)
		if !ok {
			continue
		}
		res := s.run(ctx, impl, sb, tc.args...)
		teardown()
		if res.ExitCode == 0 {
			s.ledger.Fail(name, "exit=0 for invalid invocation")
			continue
		}
		if res.TimedOut() || res.NotFound() {
			s.ledger.Fail(name, fmt.Sprintf("did not reject cleanly (exit=%d)", res.ExitCode))
			continue
		}
		s.ledger.OK(name)
	}
}
