package checks

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/config"
	"github.com/heliod-project/heliconf/internal/infra"
	"github.com/heliod-project/heliconf/internal/report"
	"github.com/heliod-project/heliconf/internal/supervisor"
	"github.com/heliod-project/heliconf/internal/trace"
)

func newTestSuite(t *testing.T, opts Options) (*Suite, *report.Ledger) {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.Default(filepath.Join(t.TempDir(), "src"))
	ledger := report.NewLedger(&bytes.Buffer{})
	runner := infra.NewCommandRunner(logger, false)
	prov := infra.NewSandboxProvisioner(logger)
	reg := supervisor.NewRegistry(logger)
	t.Cleanup(reg.DrainKillAll)
	sup := supervisor.New(reg, infra.NewProcessManager(), logger)
	verifier := supervisor.NewTimingVerifier(sup, cfg.Deadline(), logger)
	auditor := trace.NewAuditor(sup, runner, logger)
	return NewSuite(cfg, ledger, runner, prov, sup, verifier, auditor, logger, opts), ledger
}

// With no binaries built, every check must resolve to a skip. Skips never
// become failures.
func TestSuiteRunNoBinaries(t *testing.T) {
	s, ledger := newTestSuite(t, Options{SkipBuild: true})
	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, ledger.Failed())
	assert.Positive(t, ledger.Skipped())
}

func TestSuiteRunSingleGroup(t *testing.T) {
	s, ledger := newTestSuite(t, Options{SkipBuild: true, Only: "cross"})
	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, ledger.Failed())
	assert.Equal(t, 1, ledger.Skipped())
}

func TestSuiteRunUnknownGroup(t *testing.T) {
	s, _ := newTestSuite(t, Options{Only: "nonsense"})
	assert.Error(t, s.Run(context.Background()))
}

func TestLatPrefixes(t *testing.T) {
	s, _ := newTestSuite(t, Options{})
	assert.Equal(t, []string{"41.87", "41.88"}, s.latPrefixes())

	s.cfg.Location = "10.5,-20"
	assert.Equal(t, []string{"10.50"}, s.latPrefixes())
}

func TestGroupNames(t *testing.T) {
	s, _ := newTestSuite(t, Options{})
	names := s.GroupNames()
	assert.Contains(t, names, "build")
	assert.Contains(t, names, "signals")
	assert.Equal(t, "build", names[0])
}
