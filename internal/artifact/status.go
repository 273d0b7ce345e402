package artifact

import (
	"regexp"
	"strconv"
	"strings"
)

// Status output is a human-readable report, so extraction is tolerant of
// surrounding text and only anchors on the labeled lines every
// implementation prints.
var (
	tempRe      = regexp.MustCompile(`Target temperature:\s*(\d+)K`)
	sunriseRe   = regexp.MustCompile(`Sunrise:\s+(\d+:\d+)`)
	sunsetRe    = regexp.MustCompile(`Sunset:\s+(\d+:\d+)`)
	elevationRe = regexp.MustCompile(`Sun elevation:\s+([-.\d]+)`)
	modeRe      = regexp.MustCompile(`Mode:\s+(\w+)`)
)

// StatusReport holds the fields extracted from a status invocation's
// output. Found* flags distinguish "absent" from zero values.
type StatusReport struct {
	TempKelvin     int
	FoundTemp      bool
	Sunrise        string
	Sunset         string
	Elevation      float64
	FoundElevation bool
	Mode           string
	ManualOverride bool
}

// ParseStatus extracts every recognized field from status output.
func ParseStatus(text string) StatusReport {
	var r StatusReport
	if m := tempRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			r.TempKelvin = v
			r.FoundTemp = true
		}
	}
	if m := sunriseRe.FindStringSubmatch(text); m != nil {
		r.Sunrise = m[1]
	}
	if m := sunsetRe.FindStringSubmatch(text); m != nil {
		r.Sunset = m[1]
	}
	if m := elevationRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.Elevation = v
			r.FoundElevation = true
		}
	}
	if m := modeRe.FindStringSubmatch(text); m != nil {
		r.Mode = m[1]
	}
	r.ManualOverride = strings.Contains(text, "MANUAL OVERRIDE")
	return r
}

// ExtractTemp pulls just the target temperature from status output.
func ExtractTemp(text string) (int, bool) {
	r := ParseStatus(text)
	return r.TempKelvin, r.FoundTemp
}

// HasLocationTokens reports whether location config content carries the
// latitude and longitude keys. The file format (INI sections, key order,
// separators) is implementation-defined; only the tokens are contractual.
func HasLocationTokens(content string) bool {
	return strings.Contains(content, "latitude") && strings.Contains(content, "longitude")
}

// ContainsCoordinate reports whether content carries a specific coordinate
// at any of the given precisions. Implementations may round differently,
// so callers pass the acceptable renderings.
func ContainsCoordinate(content string, renderings ...string) bool {
	for _, r := range renderings {
		if strings.Contains(content, r) {
			return true
		}
	}
	return false
}
