package checks

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/heliod-project/heliconf/internal/artifact"
	"github.com/heliod-project/heliconf/internal/domain"
)

// crossGroup runs writer/reader scenarios across every ordered pair of
// available implementations and compares override artifact structure.
// One writer completes and is fully flushed before the reader runs.
func (s *Suite) crossGroup(ctx context.Context) {
	avail := s.available()
	if len(avail) < 2 {
		s.ledger.Skip("cross-implementation checks", "fewer than two binaries built")
		return
	}

	temps := []int{3500, 4500, 2700, 5200, 3100, 6000}
	i := 0
	for _, a := range avail {
		for _, b := range avail {
			if a.Name == b.Name {
				continue
			}
			s.checkConfigCrossRead(ctx, a, b)
			s.checkOverrideCrossRead(ctx, a, b, temps[i%len(temps)])
			i++
		}
	}

	s.checkOverrideFormat(ctx, avail)
}

// checkConfigCrossRead verifies that a location written by one
// implementation is readable by another: the artifact format is shared,
// not per-implementation.
func (s *Suite) checkConfigCrossRead(ctx context.Context, writer, reader domain.Implementation) {
	name := fmt.Sprintf("[%s -> %s] location cross-read", writer.Name, reader.Name)
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	if res := s.setLocation(ctx, writer, sb); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("writer --set-location exit=%d\n%s",
			res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}
	res := s.run(ctx, reader, sb, "--status")
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("reader --status exit=%d\n%s",
			res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}
	// Prefix match to two decimals; implementations round differently.
	if !artifact.ContainsCoordinate(res.Combined(), s.latPrefixes()...) {
		s.ledger.Fail(name, "reader status does not echo written latitude:\n"+excerpt(res.Combined(), 300))
		return
	}
	s.ledger.OK(name)
}

// checkOverrideCrossRead verifies that an override written by one
// implementation is honored by another's status report.
func (s *Suite) checkOverrideCrossRead(ctx context.Context, writer, reader domain.Implementation, temp int) {
	name := fmt.Sprintf("[%s -> %s] override cross-read (%dK)", writer.Name, reader.Name, temp)
	sb, teardown, ok := s.sandbox(name)
	if !ok {
		return
	}
	defer teardown()

	// Status needs a location to compute anything at all.
	if res := s.setLocation(ctx, writer, sb); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("--set-location exit=%d", res.ExitCode))
		return
	}
	if res := s.run(ctx, writer, sb, "--set", strconv.Itoa(temp), "5"); res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("writer --set exit=%d\n%s",
			res.ExitCode, excerpt(res.Combined(), 200)))
		return
	}

	res := s.run(ctx, reader, sb, "--status")
	if res.ExitCode != 0 {
		s.ledger.Fail(name, fmt.Sprintf("reader --status exit=%d", res.ExitCode))
		return
	}
	report := artifact.ParseStatus(res.Combined())
	if !report.ManualOverride {
		s.ledger.Fail(name, "no MANUAL OVERRIDE marker in reader status:\n"+excerpt(res.Combined(), 300))
		return
	}
	if !strings.Contains(res.Combined(), strconv.Itoa(temp)) {
		s.ledger.Fail(name, fmt.Sprintf("override temp %d not reported:\n%s",
			temp, excerpt(res.Combined(), 300)))
		return
	}
	s.ledger.OK(name)
}

// checkOverrideFormat has every implementation write the same override in
// its own sandbox, then asserts structural and value agreement: identical
// key sets, equal deterministic fields, issued_at within tolerance.
func (s *Suite) checkOverrideFormat(ctx context.Context, avail []domain.Implementation) {
	type written struct {
		impl domain.Implementation
		ov   *domain.Override
		raw  map[string]any
	}
	var artifacts []written

	for _, impl := range avail {
		name := label(impl, "override artifact conforms to schema")
		sb, teardown, ok := s.sandbox(name)
		if !ok {
			continue
		}
		res := s.run(ctx, impl, sb, "--set", "3000", "10")
		if res.ExitCode != 0 {
			s.ledger.Fail(name, fmt.Sprintf("--set exit=%d", res.ExitCode))
			teardown()
			continue
		}
		raw, err := readFile(sb.OverrideFile)
		if err != nil {
			s.ledger.Fail(name, fmt.Sprintf("artifact missing: %v", err))
			teardown()
			continue
		}
		if err := artifact.ValidateOverride([]byte(raw)); err != nil {
			s.ledger.Fail(name, err.Error())
			teardown()
			continue
		}
		ov, rawMap, err := artifact.LoadOverride(sb.OverrideFile)
		teardown()
		if err != nil {
			s.ledger.Fail(name, err.Error())
			continue
		}
		if missing, extra := artifact.FieldSetDiff(rawMap); len(missing) > 0 || len(extra) > 0 {
			s.ledger.Fail(name, fmt.Sprintf("missing=%v extra=%v", missing, extra))
			continue
		}
		s.ledger.OK(name)
		artifacts = append(artifacts, written{impl: impl, ov: ov, raw: rawMap})
	}

	if len(artifacts) < 2 {
		return
	}
	ref := artifacts[0]
	for _, w := range artifacts[1:] {
		name := fmt.Sprintf("[%s vs %s] override field agreement", ref.impl.Name, w.impl.Name)
		switch {
		case !artifact.FieldSetsEqual(ref.raw, w.raw):
			s.ledger.Fail(name, fmt.Sprintf("key sets differ: %v vs %v",
				artifact.FieldSet(ref.raw), artifact.FieldSet(w.raw)))
		case ref.ov.TargetTemp != w.ov.TargetTemp:
			s.ledger.Fail(name, fmt.Sprintf("target_temp %d vs %d", ref.ov.TargetTemp, w.ov.TargetTemp))
		case ref.ov.DurationMinutes != w.ov.DurationMinutes:
			s.ledger.Fail(name, fmt.Sprintf("duration_minutes %d vs %d",
				ref.ov.DurationMinutes, w.ov.DurationMinutes))
		case ref.ov.Active != w.ov.Active:
			s.ledger.Fail(name, fmt.Sprintf("active %v vs %v", ref.ov.Active, w.ov.Active))
		case ref.ov.StartTemp != w.ov.StartTemp:
			s.ledger.Fail(name, fmt.Sprintf("start_temp %d vs %d", ref.ov.StartTemp, w.ov.StartTemp))
		case math.Abs(ref.ov.IssuedAt-w.ov.IssuedAt) > s.cfg.Tolerances.IssuedAtSec:
			s.ledger.Fail(name, fmt.Sprintf("issued_at drift %.1fs exceeds %.0fs",
				math.Abs(ref.ov.IssuedAt-w.ov.IssuedAt), s.cfg.Tolerances.IssuedAtSec))
		default:
			s.ledger.OK(name)
		}
	}
}
