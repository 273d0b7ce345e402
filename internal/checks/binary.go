package checks

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/heliod-project/heliconf/internal/domain"
)

const startupRuns = 10

// binaryGroup reports informational binary-level properties side by side:
// size on disk, dynamic library count, linking type, and cold-start
// latency. Only the static variant's linking type is asserted.
func (s *Suite) binaryGroup(ctx context.Context) {
	avail := s.available()
	if len(avail) < 2 {
		s.ledger.Skip("binary comparison", "fewer than two binaries built")
		return
	}

	s.ledger.Printf("\n  %-12s %10s %8s %14s\n", "impl", "size", "libs", "startup")
	type row struct {
		sizeKB  float64
		startup float64
	}
	rows := make([]row, 0, len(avail))

	for _, impl := range avail {
		info, err := os.Stat(impl.Binary)
		if err != nil {
			s.ledger.Skip(label(impl, "binary comparison"), err.Error())
			continue
		}
		sizeKB := float64(info.Size()) / 1024.0
		libs := s.sharedLibCount(ctx, impl.Binary)
		startup := s.meanStartup(ctx, impl)
		s.ledger.Printf("  %-12s %8.0fKB %8d %12.1fms\n", impl.Name, sizeKB, libs, startup)
		rows = append(rows, row{sizeKB: sizeKB, startup: startup})

		if impl.Static {
			s.checkStaticLinking(ctx, impl)
		}
		s.ledger.OK(label(impl, "binary present and measurable"))
	}

	if len(rows) >= 2 {
		s.ledger.Compare("size", rows[0].sizeKB, rows[1].sizeKB, "KB")
		s.ledger.Compare("startup", rows[0].startup, rows[1].startup, "ms")
	}
}

// sharedLibCount counts runtime library dependencies via ldd. A static
// binary or an unavailable ldd reports zero.
func (s *Suite) sharedLibCount(ctx context.Context, binary string) int {
	res := s.runner.Run(ctx, "ldd", []string{binary}, nil, 5*time.Second)
	if res.ExitCode != 0 {
		return 0
	}
	n := 0
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.Contains(line, "=>") {
			n++
		}
	}
	return n
}

func (s *Suite) checkStaticLinking(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "statically linked")
	res := s.runner.Run(ctx, "file", []string{impl.Binary}, nil, 5*time.Second)
	if res.ExitCode != 0 {
		s.ledger.Skip(name, "file(1) unavailable")
		return
	}
	if strings.Contains(res.Stdout, "statically linked") ||
		strings.Contains(res.Stdout, "static-pie linked") {
		s.ledger.OK(name)
		return
	}
	s.ledger.Fail(name, excerpt(res.Stdout, 200))
}

// meanStartup measures --help wall time as a proxy for process cold-start
// cost, in milliseconds.
func (s *Suite) meanStartup(ctx context.Context, impl domain.Implementation) float64 {
	var total time.Duration
	for i := 0; i < startupRuns; i++ {
		t0 := time.Now()
		s.runner.Run(ctx, impl.Binary, []string{"--help"}, nil, 5*time.Second)
		total += time.Since(t0)
	}
	return float64(total.Milliseconds()) / float64(startupRuns)
}
