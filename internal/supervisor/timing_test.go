package supervisor

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
)

func TestStandardPhases(t *testing.T) {
	phases := StandardPhases([]float64{0.5, 2.0, 5.0})

	require.Len(t, phases, 3)
	assert.Equal(t, 500*time.Millisecond, phases[0].Delay)
	assert.Equal(t, "gamma-init (0.5s)", phases[0].Name)
	assert.Equal(t, "mid-init (2.0s)", phases[1].Name)
	assert.Equal(t, "steady-state (5.0s)", phases[2].Name)
}

func TestAssertSignalDeadline_PromptExit(t *testing.T) {
	sup, reg := newSupervisor(t)
	v := NewTimingVerifier(sup, 3*time.Second, zap.NewNop())
	bin := writeScript(t, wellBehavedDaemon)

	out := v.AssertSignalDeadline(bin, os.Environ(), Phase{Delay: 200 * time.Millisecond, Name: "gamma-init (0.2s)"})

	assert.Equal(t, domain.StatusPass, out.Status)
	assert.Contains(t, out.Message, "SIGTERM @ gamma-init (0.2s) -> exit in")
	assert.Zero(t, reg.Len(), "process must be reaped after the check")
}

func TestAssertSignalDeadline_AlreadyExitedIsSkip(t *testing.T) {
	sup, _ := newSupervisor(t)
	v := NewTimingVerifier(sup, time.Second, zap.NewNop())
	bin := writeScript(t, `exit 0`)

	out := v.AssertSignalDeadline(bin, os.Environ(), Phase{Delay: 300 * time.Millisecond, Name: "gamma-init"})

	assert.Equal(t, domain.StatusSkip, out.Status)
	assert.Equal(t, "exited before signal", out.Detail)
}

func TestAssertSignalDeadline_SignalLostIsHardFailure(t *testing.T) {
	sup, reg := newSupervisor(t)
	// Short deadline keeps the test fast; the failure semantics are the same.
	v := NewTimingVerifier(sup, 500*time.Millisecond, zap.NewNop())
	bin := writeScript(t, `
trap '' TERM
echo "blocked in retry loop" >&2
while :; do sleep 0.1; done
`)

	out := v.AssertSignalDeadline(bin, os.Environ(), Phase{Delay: 200 * time.Millisecond, Name: "mid-init"})

	assert.Equal(t, domain.StatusFail, out.Status)
	assert.Contains(t, out.Message, "NO EXIT")
	assert.Contains(t, out.Message, "signal lost")
	assert.Contains(t, out.Detail, "blocked in retry loop")
	// Even on failure the daemon must not outlive the check.
	assert.Zero(t, reg.Len())
}

func TestNewTimingVerifier_DefaultDeadline(t *testing.T) {
	sup, _ := newSupervisor(t)
	v := NewTimingVerifier(sup, 0, zap.NewNop())
	assert.Equal(t, DefaultSignalDeadline, v.deadline)
}
