package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heliod-project/heliconf/internal/domain"
)

const summaryFiveCols = `% time     seconds  usecs/call     calls syscall
------ ----------- ----------- --------- ----------------
 62.61    0.001532          12       121 io_uring_enter
 20.34    0.000498           4       103 write
  9.01    0.000221         221         1 landlock_create_ruleset
  8.04    0.000197           6        31 read
------ ----------- ----------- --------- ----------------
100.00    0.002448           9       256 total
`

const summarySixCols = `% time     seconds  usecs/call     calls    errors syscall
------ ----------- ----------- --------- --------- ----------------
 55.10    0.003001          15       200         3 io_uring_enter
 30.00    0.001634           8       190        12 openat
 10.12    0.000551           5       101           close
  4.78    0.000260         260         1           landlock_add_rule
------ ----------- ----------- --------- --------- ----------------
100.00    0.005446          11       492        15 total
`

func TestParseSummary_FiveColumns(t *testing.T) {
	p, err := ParseSummary(strings.NewReader(summaryFiveCols))
	require.NoError(t, err)

	assert.True(t, p.Has("io_uring_enter"))
	assert.True(t, p.Has("landlock_create_ruleset"))
	assert.True(t, p.Has("write"))
	assert.False(t, p.Has("total"))
	assert.Equal(t, 256, p.TotalCalls)
	assert.Len(t, p.Syscalls, 4)
}

func TestParseSummary_SixColumnsWithErrors(t *testing.T) {
	p, err := ParseSummary(strings.NewReader(summarySixCols))
	require.NoError(t, err)

	assert.True(t, p.Has("io_uring_enter"))
	assert.True(t, p.Has("openat"))
	assert.True(t, p.Has("landlock_add_rule"))
	assert.Equal(t, 492, p.TotalCalls)
}

func TestParseSummary_EmptyOrJunk(t *testing.T) {
	p, err := ParseSummary(strings.NewReader("\n\n% time\n------\n"))
	require.NoError(t, err)

	assert.True(t, p.Empty())
	assert.Zero(t, p.TotalCalls)
}

func TestParseSummaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strace.txt")
	require.NoError(t, os.WriteFile(path, []byte(summaryFiveCols), 0o644))

	p, err := ParseSummaryFile(path)
	require.NoError(t, err)
	assert.True(t, p.Has("io_uring_enter"))

	_, err = ParseSummaryFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFoundFallbacks(t *testing.T) {
	clean := &domain.SyscallProfile{Syscalls: map[string]bool{
		"io_uring_enter": true, "read": true,
	}}
	assert.Empty(t, FoundFallbacks(clean))

	dirty := &domain.SyscallProfile{Syscalls: map[string]bool{
		"io_uring_enter": true, "select": true, "timerfd_settime": true,
	}}
	assert.ElementsMatch(t, []string{"select", "timerfd_settime"}, FoundFallbacks(dirty))
}

func TestHasSandbox(t *testing.T) {
	assert.True(t, HasSandbox(&domain.SyscallProfile{Syscalls: map[string]bool{"landlock_create_ruleset": true}}))
	assert.True(t, HasSandbox(&domain.SyscallProfile{Syscalls: map[string]bool{"landlock_add_rule": true}}))
	assert.False(t, HasSandbox(&domain.SyscallProfile{Syscalls: map[string]bool{"openat": true}}))
}
