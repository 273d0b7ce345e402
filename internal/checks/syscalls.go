package checks

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heliod-project/heliconf/internal/domain"
	"github.com/heliod-project/heliconf/internal/supervisor"
	"github.com/heliod-project/heliconf/internal/trace"
)

// syscallGroup traces one daemon run per implementation and checks the
// aggregated profile for the architectural invariants: the io_uring event
// loop signature, the Landlock sandbox installation, and the absence of
// legacy polling fallbacks.
func (s *Suite) syscallGroup(ctx context.Context) {
	if !s.auditor.Available(ctx) {
		s.ledger.Skip("syscall audit", "strace not installed")
		return
	}

	type traced struct {
		name    string
		profile *domain.SyscallProfile
	}
	var profiles []traced

	for _, impl := range s.impls {
		if s.skipMissing(impl, "syscall audit") {
			continue
		}
		name := label(impl, "syscall audit")
		sb, teardown, ok := s.sandbox(name)
		if !ok {
			continue
		}
		if res := s.setLocation(ctx, impl, sb); res.ExitCode != 0 {
			s.ledger.Fail(name, fmt.Sprintf("--set-location exit=%d", res.ExitCode))
			teardown()
			continue
		}

		outFile := filepath.Join(sb.Home, "strace-summary.txt")
		profile, output, err := s.auditor.Profile(impl.Binary, sb.Env(), outFile)
		teardown()
		if err != nil {
			s.ledger.Skip(name, fmt.Sprintf("trace did not complete: %v", err))
			continue
		}
		if profile.Empty() {
			// No syscalls at all: the daemon never reached the point being
			// measured, commonly because no gamma backend exists here.
			s.ledger.Skip(name, "empty trace, daemon never reached its main loop")
			continue
		}

		s.checkProfile(impl, profile, output)
		profiles = append(profiles, traced{name: impl.Name, profile: profile})
	}

	if len(profiles) >= 2 {
		s.ledger.Printf("\n  %-12s %14s %14s\n", "impl", "syscalls used", "total calls")
		for _, t := range profiles {
			s.ledger.Printf("  %-12s %14d %14d\n",
				t.name, len(t.profile.Syscalls), t.profile.TotalCalls)
		}
		s.ledger.Compare("total calls",
			float64(profiles[0].profile.TotalCalls),
			float64(profiles[1].profile.TotalCalls), "")

		// Per-syscall presence matrix: which implementation used what.
		all := make([]*domain.SyscallProfile, len(profiles))
		s.ledger.Printf("\n  %-24s", "syscall")
		for i, t := range profiles {
			all[i] = t.profile
			s.ledger.Printf(" %10s", t.name)
		}
		s.ledger.Printf("\n")
		for _, sc := range unionSyscalls(all) {
			s.ledger.Printf("  %-24s", sc)
			for _, p := range all {
				mark := "-"
				if p.Has(sc) {
					mark = "x"
				}
				s.ledger.Printf(" %10s", mark)
			}
			s.ledger.Printf("\n")
		}
	}
}

// unionSyscalls returns the sorted union of syscall names across profiles.
func unionSyscalls(profiles []*domain.SyscallProfile) []string {
	seen := make(map[string]bool)
	for _, p := range profiles {
		for name := range p.Syscalls {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Suite) checkProfile(impl domain.Implementation, profile *domain.SyscallProfile, output string) {
	name := func(check string) string { return label(impl, check) }

	// A daemon stuck in its gamma-retry loop still churns syscalls, so the
	// trace is non-empty while the loop and sandbox signatures are
	// legitimately absent. Only a daemon that reached steady state can fail
	// these two checks.
	reachedLoop := supervisor.ReachedSteadyState(output)

	switch {
	case profile.Has(trace.EventLoopSyscall):
		s.ledger.OK(name("event loop uses io_uring"))
	case !reachedLoop:
		s.ledger.Skip(name("event loop uses io_uring"), "daemon never reached its event loop")
	default:
		s.ledger.Fail(name("event loop uses io_uring"),
			fmt.Sprintf("%s absent from trace (%d syscalls seen)",
				trace.EventLoopSyscall, len(profile.Syscalls)))
	}

	switch {
	case trace.HasSandbox(profile):
		s.ledger.OK(name("Landlock sandbox installed"))
	case !reachedLoop:
		s.ledger.Skip(name("Landlock sandbox installed"), "daemon never reached its event loop")
	default:
		s.ledger.Fail(name("Landlock sandbox installed"),
			"no landlock_create_ruleset/landlock_add_rule in trace")
	}

	if found := trace.FoundFallbacks(profile); len(found) > 0 {
		s.ledger.Fail(name("no legacy polling fallbacks"),
			"forbidden syscalls present: "+strings.Join(found, ", "))
	} else {
		s.ledger.OK(name("no legacy polling fallbacks"))
	}

	// The daemon ran to completion under the tracer without tripping its
	// own seccomp policy on the tracer-induced syscall restarts.
	if !strings.Contains(strings.ToLower(output), "bad system call") {
		s.ledger.OK(name("survived seccomp under tracing"))
	} else {
		s.ledger.Fail(name("survived seccomp under tracing"),
			"SIGSYS during traced run:\n"+excerpt(output, 200))
	}
}
