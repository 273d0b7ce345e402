package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/heliod-project/heliconf/internal/domain"
)

const perfRuns = 50

// perfGroup measures mean CLI wall time for the two primary
// implementations over repeated --status and --set invocations. The rows
// are informational; the pass asserts only that both commands keep
// working under repetition.
func (s *Suite) perfGroup(ctx context.Context) {
	avail := s.available()
	if len(avail) < 2 {
		s.ledger.Skip("performance comparison", "fewer than two binaries built")
		return
	}
	a, b := avail[0], avail[1]

	s.ledger.Printf("\n  %d-run mean wall time\n", perfRuns)
	s.ledger.Printf("  %-20s %-20s %-20s\n", "command", a.Name, b.Name)

	for _, bench := range []struct {
		labelText string
		args      []string
	}{
		{"--status", []string{"--status"}},
		{"--set 3500 5", []string{"--set", "3500", "5"}},
	} {
		aMean, aOK := s.meanWallTime(ctx, a, bench.args)
		bMean, bOK := s.meanWallTime(ctx, b, bench.args)
		if !aOK || !bOK {
			s.ledger.Fail(fmt.Sprintf("[%s vs %s] %s under repetition", a.Name, b.Name, bench.labelText),
				"command stopped succeeding mid-benchmark")
			continue
		}
		s.ledger.Compare(bench.labelText, aMean, bMean, "ms")
		s.ledger.OK(fmt.Sprintf("[%s vs %s] %s stable over %d runs",
			a.Name, b.Name, bench.labelText, perfRuns))
	}
}

// meanWallTime runs one command repeatedly in a fresh seeded sandbox and
// returns the mean duration in milliseconds. ok is false when any run
// exits non-zero.
func (s *Suite) meanWallTime(ctx context.Context, impl domain.Implementation, args []string) (float64, bool) {
	sb, err := s.prov.Provision()
	if err != nil {
		return 0, false
	}
	defer s.prov.Teardown(sb)
	if res := s.setLocation(ctx, impl, sb); res.ExitCode != 0 {
		return 0, false
	}

	var total time.Duration
	for i := 0; i < perfRuns; i++ {
		t0 := time.Now()
		res := s.run(ctx, impl, sb, args...)
		total += time.Since(t0)
		if res.ExitCode != 0 {
			return 0, false
		}
	}
	return float64(total.Microseconds()) / 1000.0 / float64(perfRuns), true
}
