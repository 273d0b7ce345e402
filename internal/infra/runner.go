package infra

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
)

// DefaultCmdTimeout bounds one-shot CLI invocations. Builds pass their own
// longer timeouts.
const DefaultCmdTimeout = 10 * time.Second

const echoLimit = 200

// CommandRunner executes binaries with bounded timeouts and captured
// output. Non-zero exits are results, not errors; missing binaries and
// timeouts surface as the sentinel exit codes so checkers can branch on
// them uniformly.
type CommandRunner struct {
	logger  *zap.Logger
	verbose bool
}

// NewCommandRunner creates a runner. With verbose set, truncated subprocess
// output is echoed through the logger during execution.
func NewCommandRunner(logger *zap.Logger, verbose bool) *CommandRunner {
	return &CommandRunner{logger: logger, verbose: verbose}
}

// Run executes the binary with the given args and environment.
func (r *CommandRunner) Run(ctx context.Context, binary string, args []string, env []string, timeout time.Duration) domain.CmdResult {
	return r.RunIn(ctx, "", binary, args, env, timeout)
}

// RunIn is Run with an explicit working directory.
func (r *CommandRunner) RunIn(ctx context.Context, dir, binary string, args []string, env []string, timeout time.Duration) domain.CmdResult {
	if timeout <= 0 {
		timeout = DefaultCmdTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, binary, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := domain.CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case cctx.Err() == context.DeadlineExceeded:
		res.ExitCode = domain.ExitTimeout
		res.Stderr += "TIMEOUT"
	case err == nil:
		res.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			res.ExitCode = domain.ExitNotFound
			res.Stderr += "BINARY NOT FOUND"
		} else {
			// Start failures without a classification (permissions etc.)
			// behave like a missing binary for checker purposes.
			res.ExitCode = domain.ExitNotFound
			res.Stderr += err.Error()
		}
	}

	if r.verbose {
		if s := truncate(res.Stdout, echoLimit); s != "" {
			r.logger.Info("stdout", zap.String("cmd", binary), zap.String("out", s))
		}
		if s := truncate(res.Stderr, echoLimit); s != "" {
			r.logger.Info("stderr", zap.String("cmd", binary), zap.String("out", s))
		}
	}
	return res
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Ensure CommandRunner implements domain.Runner.
var _ domain.Runner = (*CommandRunner)(nil)
