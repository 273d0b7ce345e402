package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
)

func TestRun_CapturesStdout(t *testing.T) {
	r := NewCommandRunner(zap.NewNop(), false)

	res := r.Run(context.Background(), "/bin/echo", []string{"hello"}, nil, 0)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	r := NewCommandRunner(zap.NewNop(), false)

	res := r.Run(context.Background(), "/bin/sh", []string{"-c", "exit 3"}, nil, 0)

	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut())
	assert.False(t, res.NotFound())
}

func TestRun_TimeoutSentinel(t *testing.T) {
	r := NewCommandRunner(zap.NewNop(), false)

	start := time.Now()
	res := r.Run(context.Background(), "/bin/sleep", []string{"5"}, nil, 200*time.Millisecond)

	assert.Equal(t, domain.ExitTimeout, res.ExitCode)
	assert.True(t, res.TimedOut())
	assert.Contains(t, res.Stderr, "TIMEOUT")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRun_NotFoundSentinel(t *testing.T) {
	r := NewCommandRunner(zap.NewNop(), false)

	res := r.Run(context.Background(), "/no/such/binary", nil, nil, 0)

	assert.Equal(t, domain.ExitNotFound, res.ExitCode)
	assert.True(t, res.NotFound())
	assert.Contains(t, res.Stderr, "BINARY NOT FOUND")
}

func TestRunIn_WorkingDirectory(t *testing.T) {
	r := NewCommandRunner(zap.NewNop(), false)
	dir := t.TempDir()

	res := r.RunIn(context.Background(), dir, "/bin/pwd", nil, nil, 0)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, dir)
}

func TestRun_EnvIsApplied(t *testing.T) {
	r := NewCommandRunner(zap.NewNop(), false)

	res := r.Run(context.Background(), "/bin/sh", []string{"-c", "echo $HELIOD_MARKER"},
		[]string{"PATH=/bin:/usr/bin", "HELIOD_MARKER=xyzzy"}, 0)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "xyzzy")
}

func TestCombined(t *testing.T) {
	res := domain.CmdResult{Stdout: "out", Stderr: "err"}
	assert.Equal(t, "outerr", res.Combined())
}
