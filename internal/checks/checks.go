// Package checks implements the protocol checkers, the
// cross-implementation comparator, and the group sequencing that drives
// every available daemon implementation through the shared contract.
package checks

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/config"
	"github.com/heliod-project/heliconf/internal/domain"
	"github.com/heliod-project/heliconf/internal/report"
	"github.com/heliod-project/heliconf/internal/supervisor"
	"github.com/heliod-project/heliconf/internal/trace"
)

// Suite sequences the check groups. Groups run strictly sequentially;
// each check owns exclusive mutation rights over its sandbox.
type Suite struct {
	cfg      *config.Config
	ledger   *report.Ledger
	runner   domain.Runner
	prov     domain.Provisioner
	sup      *supervisor.Supervisor
	verifier *supervisor.TimingVerifier
	auditor  *trace.Auditor
	impls    []domain.Implementation
	logger   *zap.Logger

	skipBuild bool
	only      string
}

// Options configures a Suite.
type Options struct {
	SkipBuild bool
	Only      string // run a single group by name, empty means all
}

// NewSuite wires the check groups to their collaborators.
func NewSuite(
	cfg *config.Config,
	ledger *report.Ledger,
	runner domain.Runner,
	prov domain.Provisioner,
	sup *supervisor.Supervisor,
	verifier *supervisor.TimingVerifier,
	auditor *trace.Auditor,
	logger *zap.Logger,
	opts Options,
) *Suite {
	return &Suite{
		cfg:       cfg,
		ledger:    ledger,
		runner:    runner,
		prov:      prov,
		sup:       sup,
		verifier:  verifier,
		auditor:   auditor,
		impls:     cfg.Implementations(),
		logger:    logger,
		skipBuild: opts.SkipBuild,
		only:      opts.Only,
	}
}

type group struct {
	name  string
	title string
	run   func(ctx context.Context)
}

func (s *Suite) groups() []group {
	return []group{
		{"build", "Build phase", s.buildGroup},
		{"cli", "CLI protocol", s.cliGroup},
		{"cross", "Cross-implementation artifact exchange", s.crossGroup},
		{"status", "Status output comparison", s.statusGroup},
		{"daemon", "Daemon lifecycle and file watching", s.daemonGroup},
		{"signals", "SIGTERM responsiveness", s.signalsGroup},
		{"syscalls", "Syscall audit", s.syscallGroup},
		{"binary", "Binary comparison", s.binaryGroup},
		{"perf", "Performance comparison", s.perfGroup},
	}
}

// GroupNames returns the selectable group names in run order.
func (s *Suite) GroupNames() []string {
	gs := s.groups()
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = g.name
	}
	return names
}

// Run executes the selected check groups. It only errors on a group name
// that does not exist; check failures are recorded in the ledger.
func (s *Suite) Run(ctx context.Context) error {
	matched := false
	for _, g := range s.groups() {
		if s.only != "" && !strings.EqualFold(s.only, g.name) {
			continue
		}
		matched = true
		s.ledger.Section(g.title)
		g.run(ctx)
	}
	if !matched {
		return fmt.Errorf("unknown check group %q", s.only)
	}
	return nil
}

// built reports whether the implementation's binary exists on disk.
func built(impl domain.Implementation) bool {
	info, err := os.Stat(impl.Binary)
	return err == nil && !info.IsDir()
}

// skipMissing records a skip when the binary is absent. Returns true when
// the check should be abandoned.
func (s *Suite) skipMissing(impl domain.Implementation, check string) bool {
	if built(impl) {
		return false
	}
	s.ledger.Skip(fmt.Sprintf("[%s] %s", impl.Name, check), "binary not built")
	return true
}

// available returns the implementations whose binaries exist, in config
// order.
func (s *Suite) available() []domain.Implementation {
	var out []domain.Implementation
	for _, impl := range s.impls {
		if built(impl) {
			out = append(out, impl)
		}
	}
	return out
}

// sandbox provisions a fresh environment, recording a skip on failure.
// The returned teardown is safe to defer unconditionally.
func (s *Suite) sandbox(check string) (*domain.Sandbox, func(), bool) {
	sb, err := s.prov.Provision()
	if err != nil {
		s.ledger.Skip(check, fmt.Sprintf("sandbox unavailable: %v", err))
		return nil, func() {}, false
	}
	return sb, func() { s.prov.Teardown(sb) }, true
}

// run invokes one CLI command of an implementation inside the sandbox.
func (s *Suite) run(ctx context.Context, impl domain.Implementation, sb *domain.Sandbox, args ...string) domain.CmdResult {
	return s.runner.Run(ctx, impl.Binary, args, sb.Env(), 0)
}

// setLocation seeds the sandbox with the configured test coordinates.
func (s *Suite) setLocation(ctx context.Context, impl domain.Implementation, sb *domain.Sandbox) domain.CmdResult {
	return s.run(ctx, impl, sb, "--set-location", s.cfg.Location)
}

// record transfers a component-produced outcome into the ledger with an
// implementation prefix.
func (s *Suite) record(prefix string, o domain.Outcome) {
	msg := prefix + o.Message
	switch o.Status {
	case domain.StatusPass:
		s.ledger.OK(msg)
	case domain.StatusSkip:
		s.ledger.Skip(msg, o.Detail)
	default:
		s.ledger.Fail(msg, o.Detail)
	}
}

// settle waits the configured delay for the daemon's file watch to observe
// an artifact rewrite. The watch protocol exposes no synchronization
// signal, so a fixed delay is the only portable option.
func (s *Suite) settle() {
	time.Sleep(s.cfg.Settle())
}

func label(impl domain.Implementation, check string) string {
	return fmt.Sprintf("[%s] %s", impl.Name, check)
}

// latPrefixes returns the acceptable two-decimal renderings of the
// configured latitude: truncated and rounded, since implementations
// round differently.
func (s *Suite) latPrefixes() []string {
	latStr := strings.SplitN(s.cfg.Location, ",", 2)[0]
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return []string{latStr}
	}
	truncated := fmt.Sprintf("%.2f", math.Trunc(lat*100)/100)
	rounded := fmt.Sprintf("%.2f", lat)
	if truncated == rounded {
		return []string{truncated}
	}
	return []string{truncated, rounded}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	if len(text) > n {
		return text[:n]
	}
	return text
}
