package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/heliod-project/heliconf/internal/domain"
)

// warningNoise marks stderr lines that contain "warning" but are build
// tool chatter, not diagnostics against the code. Deprecation notices are
// filtered separately, case-insensitively.
var warningNoise = []string{"Compiling", "Finished", "Downloading", "Updating"}

// buildGroup compiles every configured implementation from source. Each
// target carries a zero-warning policy: a surviving compiler warning is a
// regression, not noise.
func (s *Suite) buildGroup(ctx context.Context) {
	if s.skipBuild {
		s.ledger.Skip("build phase", "--skip-build, using pre-built binaries")
		return
	}
	for _, impl := range s.impls {
		s.buildOne(ctx, impl)
	}
}

func (s *Suite) buildOne(ctx context.Context, impl domain.Implementation) {
	name := label(impl, "build")
	if len(impl.BuildCommands) == 0 {
		s.ledger.Skip(name, "no build command configured")
		return
	}

	var allStderr strings.Builder
	for _, cmd := range impl.BuildCommands {
		res := s.runner.RunIn(ctx, impl.BuildDir, cmd.Argv[0], cmd.Argv[1:], nil, cmd.Timeout)
		allStderr.WriteString(res.Stderr)
		if res.ExitCode == 0 {
			continue
		}
		if reason, ok := matchSkipPattern(res.Stderr, cmd.SkipPatterns); ok {
			s.ledger.Skip(name, reason)
			return
		}
		if res.TimedOut() {
			s.ledger.Fail(name, fmt.Sprintf("%s timed out after %s",
				strings.Join(cmd.Argv, " "), cmd.Timeout))
			return
		}
		s.ledger.Fail(name, fmt.Sprintf("%s exit=%d\n%s",
			strings.Join(cmd.Argv, " "), res.ExitCode, firstLines(res.Stderr, 5)))
		return
	}

	if !built(impl) {
		s.ledger.Fail(name, "build succeeded but binary absent: "+impl.Binary)
		return
	}
	if warnings := buildWarnings(allStderr.String()); len(warnings) > 0 {
		s.ledger.Fail(name+" (zero-warning policy)", firstLines(strings.Join(warnings, "\n"), 5))
		return
	}
	s.ledger.OK(name + ": clean, zero warnings")
}

// buildWarnings extracts real warning lines from build stderr.
func buildWarnings(stderr string) []string {
	var out []string
line:
	for _, raw := range strings.Split(stderr, "\n") {
		lower := strings.ToLower(raw)
		if !strings.Contains(lower, "warning") || strings.Contains(lower, "deprecated") {
			continue
		}
		for _, noise := range warningNoise {
			if strings.Contains(raw, noise) {
				continue line
			}
		}
		out = append(out, strings.TrimSpace(raw))
	}
	return out
}

// matchSkipPattern checks a failed build's stderr against the target's
// skip patterns (e.g. a cross toolchain that is not installed).
func matchSkipPattern(stderr string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if strings.Contains(stderr, p) {
			return p, true
		}
	}
	return "", false
}

func firstLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
