package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleStatus = `heliod status
Location: 41.8781, -87.6298
Target temperature: 4721K
Sunrise:  06:12
Sunset:   19:33
Sun elevation:  -12.48
Mode: continuous
`

func TestParseStatus(t *testing.T) {
	r := ParseStatus(sampleStatus)
	assert.True(t, r.FoundTemp)
	assert.Equal(t, 4721, r.TempKelvin)
	assert.Equal(t, "06:12", r.Sunrise)
	assert.Equal(t, "19:33", r.Sunset)
	assert.True(t, r.FoundElevation)
	assert.InDelta(t, -12.48, r.Elevation, 0.001)
	assert.Equal(t, "continuous", r.Mode)
	assert.False(t, r.ManualOverride)
}

func TestParseStatusOverrideMarker(t *testing.T) {
	r := ParseStatus("Target temperature: 3500K (MANUAL OVERRIDE, 9 min remaining)")
	assert.True(t, r.ManualOverride)
	assert.Equal(t, 3500, r.TempKelvin)
}

func TestParseStatusEmpty(t *testing.T) {
	r := ParseStatus("")
	assert.False(t, r.FoundTemp)
	assert.False(t, r.FoundElevation)
	assert.Empty(t, r.Sunrise)
	assert.Empty(t, r.Mode)
}

func TestParseStatusSpacingVariants(t *testing.T) {
	// Implementations differ in padding after the label.
	r := ParseStatus("Target temperature:3400K\nSun elevation:  23.1")
	assert.Equal(t, 3400, r.TempKelvin)
	assert.InDelta(t, 23.1, r.Elevation, 0.001)
}

func TestExtractTemp(t *testing.T) {
	v, ok := ExtractTemp("Target temperature: 6500K")
	assert.True(t, ok)
	assert.Equal(t, 6500, v)

	_, ok = ExtractTemp("no such line")
	assert.False(t, ok)
}

func TestHasLocationTokens(t *testing.T) {
	assert.True(t, HasLocationTokens("[location]\nlatitude=41.88\nlongitude=-87.63\n"))
	assert.True(t, HasLocationTokens("latitude = 41.8781 ; longitude = -87.6298"))
	assert.False(t, HasLocationTokens("lat=41.88 lon=-87.63"))
}

func TestContainsCoordinate(t *testing.T) {
	content := "latitude=41.88\n"
	assert.True(t, ContainsCoordinate(content, "41.87", "41.88"))
	assert.False(t, ContainsCoordinate(content, "41.90"))
}
