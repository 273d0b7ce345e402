// Package artifact parses and validates the daemon's on-disk artifacts
// (location config, override file) and its human-readable status output.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/kaptinlin/jsonschema"

	"github.com/heliod-project/heliconf/internal/domain"
)

// RequiredOverrideFields is the exact key set of the override artifact.
// Field-set equality across implementations is itself a contract, not an
// implementation detail.
var RequiredOverrideFields = []string{
	"active", "target_temp", "duration_minutes", "issued_at", "start_temp",
}

// overrideSchema encodes the override contract: exactly the five required
// keys, typed. start_temp is unconstrained beyond its type because the
// daemon fills it in after the CLI writes 0.
const overrideSchema = `{
  "type": "object",
  "required": ["active", "target_temp", "duration_minutes", "issued_at", "start_temp"],
  "additionalProperties": false,
  "properties": {
    "active":           {"type": "boolean"},
    "target_temp":      {"type": "integer", "minimum": 0},
    "duration_minutes": {"type": "integer", "minimum": 0},
    "issued_at":        {"type": "number", "minimum": 0},
    "start_temp":       {"type": "integer", "minimum": 0}
  }
}`

var compiledOverrideSchema = mustCompile(overrideSchema)

func mustCompile(src string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("compile override schema: %v", err))
	}
	return schema
}

// ValidateOverride checks raw JSON against the override contract schema.
func ValidateOverride(raw []byte) error {
	result := compiledOverrideSchema.ValidateJSON(raw)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("override schema violation: %v", result.Errors)
}

// LoadOverride reads and decodes an override artifact. The raw key map is
// returned alongside the typed value for field-set comparisons.
func LoadOverride(path string) (*domain.Override, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("override.json invalid JSON: %w", err)
	}
	var ov domain.Override
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, nil, fmt.Errorf("override.json shape mismatch: %w", err)
	}
	return &ov, raw, nil
}

// FieldSet returns the sorted key names of a decoded artifact.
func FieldSet(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FieldSetDiff describes how an artifact's keys deviate from the required
// set. Both slices sorted; empty slices mean conformance.
func FieldSetDiff(raw map[string]any) (missing, extra []string) {
	required := make(map[string]bool, len(RequiredOverrideFields))
	for _, k := range RequiredOverrideFields {
		required[k] = true
		if _, ok := raw[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range raw {
		if !required[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

// FieldSetsEqual reports whether two artifacts expose identical key sets.
func FieldSetsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
