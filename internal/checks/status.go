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

// statusGroup compares the solar computation outputs of all available
// implementations at the same location. The math is independently
// reimplemented in each, so agreement is bounded by tolerances rather
// than exact.
func (s *Suite) statusGroup(ctx context.Context) {
	avail := s.available()
	if len(avail) < 2 {
		s.ledger.Skip("status comparison", "fewer than two binaries built")
		return
	}

	type reading struct {
		impl   domain.Implementation
		report artifact.StatusReport
	}
	var readings []reading

	for _, impl := range avail {
		name := label(impl, "--status reports solar fields")
		sb, teardown, ok := s.sandbox(name)
		if !ok {
			continue
		}
		if res := s.setLocation(ctx, impl, sb); res.ExitCode != 0 {
			s.ledger.Fail(name, fmt.Sprintf("--set-location exit=%d", res.ExitCode))
			teardown()
			continue
		}
		res := s.run(ctx, impl, sb, "--status")
		teardown()
		if res.ExitCode != 0 {
			s.ledger.Fail(name, fmt.Sprintf("exit=%d\n%s", res.ExitCode, excerpt(res.Combined(), 200)))
			continue
		}
		report := artifact.ParseStatus(res.Combined())
		if !report.FoundTemp {
			s.ledger.Fail(name, "no target temperature in status output:\n"+excerpt(res.Combined(), 300))
			continue
		}
		s.ledger.OK(fmt.Sprintf("%s: %dK, sunrise %s, sunset %s, elevation %.2f, mode %s",
			name, report.TempKelvin, report.Sunrise, report.Sunset, report.Elevation, report.Mode))
		readings = append(readings, reading{impl: impl, report: report})
	}

	if len(readings) < 2 {
		return
	}
	ref := readings[0]
	for _, r := range readings[1:] {
		pair := fmt.Sprintf("[%s vs %s] ", ref.impl.Name, r.impl.Name)
		s.compareTemp(pair, ref.report, r.report)
		s.compareSunTimes(pair, ref.report, r.report)
		s.compareElevation(pair, ref.report, r.report)
		s.compareMode(pair, ref.report, r.report)
	}
}

func (s *Suite) compareTemp(pair string, a, b artifact.StatusReport) {
	name := pair + "target temperature"
	diff := abs(a.TempKelvin - b.TempKelvin)
	s.ledger.Compare("temperature", float64(a.TempKelvin), float64(b.TempKelvin), "K")
	if diff > s.cfg.Tolerances.TempKelvin {
		s.ledger.Fail(name, fmt.Sprintf("%dK vs %dK differ by %dK, tolerance %dK",
			a.TempKelvin, b.TempKelvin, diff, s.cfg.Tolerances.TempKelvin))
		return
	}
	s.ledger.OK(fmt.Sprintf("%s within %dK (diff %dK)", name, s.cfg.Tolerances.TempKelvin, diff))
}

func (s *Suite) compareSunTimes(pair string, a, b artifact.StatusReport) {
	for _, f := range []struct {
		field string
		av    string
		bv    string
	}{
		{"sunrise", a.Sunrise, b.Sunrise},
		{"sunset", a.Sunset, b.Sunset},
	} {
		name := pair + f.field
		if f.av == "" || f.bv == "" {
			s.ledger.Skip(name, "not reported by both implementations")
			continue
		}
		if f.av == f.bv {
			s.ledger.OK(fmt.Sprintf("%s identical (%s)", name, f.av))
			continue
		}
		// Independent solar math may land on adjacent minutes.
		if diff, ok := minutesApart(f.av, f.bv); ok && diff <= 2 {
			s.ledger.OK(fmt.Sprintf("%s within 2min (%s vs %s)", name, f.av, f.bv))
			continue
		}
		s.ledger.Fail(name, fmt.Sprintf("%s vs %s", f.av, f.bv))
	}
}

func (s *Suite) compareElevation(pair string, a, b artifact.StatusReport) {
	name := pair + "sun elevation"
	if !a.FoundElevation || !b.FoundElevation {
		s.ledger.Skip(name, "not reported by both implementations")
		return
	}
	diff := math.Abs(a.Elevation - b.Elevation)
	if diff > s.cfg.Tolerances.ElevationDeg {
		s.ledger.Fail(name, fmt.Sprintf("%.2f vs %.2f differ by %.2f, tolerance %.1f",
			a.Elevation, b.Elevation, diff, s.cfg.Tolerances.ElevationDeg))
		return
	}
	s.ledger.OK(fmt.Sprintf("%s within %.1f deg (diff %.2f)", name, s.cfg.Tolerances.ElevationDeg, diff))
}

func (s *Suite) compareMode(pair string, a, b artifact.StatusReport) {
	name := pair + "mode keyword"
	if a.Mode == "" || b.Mode == "" {
		s.ledger.Skip(name, "not reported by both implementations")
		return
	}
	if !strings.EqualFold(a.Mode, b.Mode) {
		s.ledger.Fail(name, fmt.Sprintf("%q vs %q", a.Mode, b.Mode))
		return
	}
	s.ledger.OK(fmt.Sprintf("%s identical (%s)", name, a.Mode))
}

// minutesApart parses two HH:MM strings and returns their absolute
// difference in minutes.
func minutesApart(a, b string) (int, bool) {
	am, aok := toMinutes(a)
	bm, bok := toMinutes(b)
	if !aok || !bok {
		return 0, false
	}
	return abs(am - bm), true
}

func toMinutes(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
