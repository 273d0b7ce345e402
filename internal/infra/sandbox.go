// Package infra implements infrastructure concerns (sandbox, command
// execution, process liveness).
package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/domain"
)

const (
	configDirName    = ".config/heliod"
	locationFileName = "config.ini"
	overrideFileName = "override.json"
)

// SandboxProvisioner creates isolated home trees for test cases. Each
// sandbox redirects the daemon's home-relative config lookup via a
// substituted HOME variable.
type SandboxProvisioner struct {
	logger *zap.Logger
}

// NewSandboxProvisioner creates a provisioner.
func NewSandboxProvisioner(logger *zap.Logger) *SandboxProvisioner {
	return &SandboxProvisioner{logger: logger}
}

// Provision creates a uniquely-named home directory with the daemon's
// config subdirectory, and an environment overlay pointing HOME at it.
func (p *SandboxProvisioner) Provision() (*domain.Sandbox, error) {
	home, err := os.MkdirTemp("", "heliconf-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("create sandbox home: %w", err)
	}
	configDir := filepath.Join(home, filepath.FromSlash(configDirName))
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		os.RemoveAll(home)
		return nil, fmt.Errorf("create sandbox config dir: %w", err)
	}

	env := overlayEnv(os.Environ(), "HOME", home)
	return domain.NewSandbox(
		home,
		configDir,
		filepath.Join(configDir, locationFileName),
		filepath.Join(configDir, overrideFileName),
		env,
	), nil
}

// Teardown removes the sandbox tree. Errors never propagate: cleanup
// failures must not mask the test's actual outcome.
func (p *SandboxProvisioner) Teardown(sb *domain.Sandbox) {
	if sb == nil || sb.Home == "" {
		return
	}
	if err := os.RemoveAll(sb.Home); err != nil {
		p.logger.Warn("sandbox teardown failed",
			zap.String("home", sb.Home),
			zap.Error(err))
	}
}

// overlayEnv returns env with the named variable replaced (or appended).
func overlayEnv(env []string, key, value string) []string {
	out := make([]string, 0, len(env)+1)
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, prefix+value)
}

// DropEnv returns env without the named variable. Used to strip
// WAYLAND_DISPLAY when forcing backend init failure.
func DropEnv(env []string, key string) []string {
	out := make([]string, 0, len(env))
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// SetEnv returns env with key set to value, replacing any existing entry.
func SetEnv(env []string, key, value string) []string {
	return overlayEnv(env, key, value)
}

// Ensure SandboxProvisioner implements domain.Provisioner.
var _ domain.Provisioner = (*SandboxProvisioner)(nil)
