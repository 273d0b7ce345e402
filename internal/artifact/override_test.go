package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodOverride = `{
  "active": true,
  "target_temp": 3500,
  "duration_minutes": 10,
  "issued_at": 1756400000.5,
  "start_temp": 6500
}`

func TestValidateOverride(t *testing.T) {
	assert.NoError(t, ValidateOverride([]byte(goodOverride)))
}

func TestValidateOverrideMissingField(t *testing.T) {
	err := ValidateOverride([]byte(`{"active": true, "target_temp": 3500, "duration_minutes": 10, "issued_at": 1.0}`))
	assert.Error(t, err)
}

func TestValidateOverrideExtraField(t *testing.T) {
	err := ValidateOverride([]byte(`{
		"active": true, "target_temp": 3500, "duration_minutes": 10,
		"issued_at": 1.0, "start_temp": 0, "vendor_extension": 1
	}`))
	assert.Error(t, err)
}

func TestValidateOverrideWrongType(t *testing.T) {
	err := ValidateOverride([]byte(`{
		"active": "yes", "target_temp": 3500, "duration_minutes": 10,
		"issued_at": 1.0, "start_temp": 0
	}`))
	assert.Error(t, err)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(path, []byte(goodOverride), 0o644))

	ov, raw, err := LoadOverride(path)
	require.NoError(t, err)
	assert.True(t, ov.Active)
	assert.Equal(t, 3500, ov.TargetTemp)
	assert.Equal(t, 10, ov.DurationMinutes)
	assert.InDelta(t, 1756400000.5, ov.IssuedAt, 0.001)
	assert.Equal(t, 6500, ov.StartTemp)
	assert.Len(t, raw, 5)
}

func TestLoadOverrideMissingFile(t *testing.T) {
	_, _, err := LoadOverride(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadOverrideMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))
	_, _, err := LoadOverride(path)
	assert.Error(t, err)
}

func TestFieldSetDiff(t *testing.T) {
	raw := map[string]any{
		"active": true, "target_temp": 1.0, "issued_at": 1.0,
		"start_temp": 1.0, "legacy_flag": true,
	}
	missing, extra := FieldSetDiff(raw)
	assert.Equal(t, []string{"duration_minutes"}, missing)
	assert.Equal(t, []string{"legacy_flag"}, extra)
}

func TestFieldSetDiffConformant(t *testing.T) {
	raw := map[string]any{}
	for _, k := range RequiredOverrideFields {
		raw[k] = 1.0
	}
	missing, extra := FieldSetDiff(raw)
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}

func TestFieldSetsEqual(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2}
	b := map[string]any{"y": 9, "x": 0}
	c := map[string]any{"x": 1, "z": 2}
	assert.True(t, FieldSetsEqual(a, b))
	assert.False(t, FieldSetsEqual(a, c))
	assert.False(t, FieldSetsEqual(a, map[string]any{"x": 1}))
}

func TestFieldSet(t *testing.T) {
	raw := map[string]any{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, FieldSet(raw))
}
