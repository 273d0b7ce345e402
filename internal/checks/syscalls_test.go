package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heliod-project/heliconf/internal/domain"
)

// A daemon stuck in its gamma-retry loop produces a non-empty trace with
// neither the io_uring nor the Landlock signature; on a headless host that
// is a precondition, not a defect.
func TestCheckProfileRetryLoopIsSkip(t *testing.T) {
	s, ledger := newTestSuite(t, Options{})
	profile := &domain.SyscallProfile{
		Syscalls:   map[string]bool{"openat": true, "write": true, "nanosleep": true},
		TotalCalls: 321,
	}
	output := "Failed to open DRM gamma device, retrying"

	s.checkProfile(domain.Implementation{Name: "C23"}, profile, output)

	assert.Zero(t, ledger.Failed())
	assert.Equal(t, 2, ledger.Skipped())
	assert.Equal(t, 2, ledger.Passed())
}

func TestCheckProfileSteadyStateMissingSignatures(t *testing.T) {
	s, ledger := newTestSuite(t, Options{})
	profile := &domain.SyscallProfile{
		Syscalls:   map[string]bool{"openat": true, "epoll_wait": true},
		TotalCalls: 512,
	}
	output := "daemon started (io_uring ready, 1 syscall/tick)"

	s.checkProfile(domain.Implementation{Name: "Rust"}, profile, output)

	assert.Equal(t, 2, ledger.Failed())
	assert.Zero(t, ledger.Skipped())
}

func TestCheckProfileConformantDaemon(t *testing.T) {
	s, ledger := newTestSuite(t, Options{})
	profile := &domain.SyscallProfile{
		Syscalls: map[string]bool{
			"io_uring_enter":          true,
			"landlock_create_ruleset": true,
			"openat":                  true,
		},
		TotalCalls: 1024,
	}
	output := "daemon started (io_uring ready, 1 syscall/tick)"

	s.checkProfile(domain.Implementation{Name: "C23"}, profile, output)

	assert.Equal(t, 4, ledger.Passed())
	assert.Zero(t, ledger.Failed())
	assert.Zero(t, ledger.Skipped())
}

func TestCheckProfileFallbackSyscallsFail(t *testing.T) {
	s, ledger := newTestSuite(t, Options{})
	profile := &domain.SyscallProfile{
		Syscalls: map[string]bool{
			"io_uring_enter":    true,
			"landlock_add_rule": true,
			"timerfd_create":    true,
			"select":            true,
		},
		TotalCalls: 2048,
	}
	output := "daemon started (io_uring ready, 1 syscall/tick)"

	s.checkProfile(domain.Implementation{Name: "Rust"}, profile, output)

	assert.Equal(t, 1, ledger.Failed())
	assert.Equal(t, 3, ledger.Passed())
}

func TestUnionSyscalls(t *testing.T) {
	a := &domain.SyscallProfile{Syscalls: map[string]bool{"read": true, "io_uring_enter": true}}
	b := &domain.SyscallProfile{Syscalls: map[string]bool{"read": true, "openat": true}}

	assert.Equal(t,
		[]string{"io_uring_enter", "openat", "read"},
		unionSyscalls([]*domain.SyscallProfile{a, b}))
}
