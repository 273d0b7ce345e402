package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvision_CreatesTree(t *testing.T) {
	p := NewSandboxProvisioner(zap.NewNop())

	sb, err := p.Provision()
	require.NoError(t, err)
	defer p.Teardown(sb)

	info, err := os.Stat(sb.ConfigDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(sb.ConfigDir, "config.ini"), sb.ConfigFile)
	assert.Equal(t, filepath.Join(sb.ConfigDir, "override.json"), sb.OverrideFile)
}

func TestProvision_EnvOverlaysHome(t *testing.T) {
	p := NewSandboxProvisioner(zap.NewNop())

	sb, err := p.Provision()
	require.NoError(t, err)
	defer p.Teardown(sb)

	var homes []string
	for _, kv := range sb.Env() {
		if strings.HasPrefix(kv, "HOME=") {
			homes = append(homes, strings.TrimPrefix(kv, "HOME="))
		}
	}
	require.Len(t, homes, 1, "exactly one HOME entry")
	assert.Equal(t, sb.Home, homes[0])
}

func TestProvision_SandboxesAreUnique(t *testing.T) {
	p := NewSandboxProvisioner(zap.NewNop())

	a, err := p.Provision()
	require.NoError(t, err)
	defer p.Teardown(a)
	b, err := p.Provision()
	require.NoError(t, err)
	defer p.Teardown(b)

	assert.NotEqual(t, a.Home, b.Home)
}

func TestTeardown_RemovesTreeAndIsIdempotent(t *testing.T) {
	p := NewSandboxProvisioner(zap.NewNop())

	sb, err := p.Provision()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sb.OverrideFile, []byte("{}"), 0o644))

	p.Teardown(sb)
	_, err = os.Stat(sb.Home)
	assert.True(t, os.IsNotExist(err))

	// Second teardown must not panic or fail.
	p.Teardown(sb)
	p.Teardown(nil)
}

func TestEnvHelpers(t *testing.T) {
	env := []string{"A=1", "DISPLAY=:0", "B=2"}

	set := SetEnv(env, "DISPLAY", "invalid")
	assert.Contains(t, set, "DISPLAY=invalid")
	assert.NotContains(t, set, "DISPLAY=:0")

	dropped := DropEnv(env, "DISPLAY")
	assert.Equal(t, []string{"A=1", "B=2"}, dropped)

	added := SetEnv([]string{"A=1"}, "WAYLAND_DISPLAY", "wayland-0")
	assert.Contains(t, added, "WAYLAND_DISPLAY=wayland-0")
}
