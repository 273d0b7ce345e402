// Package config loads the harness configuration: which daemon
// implementations to drive, the test location, and comparison tolerances.
// With no config file present the defaults reproduce the standard
// three-target source layout relative to the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heliod-project/heliconf/internal/domain"
)

// Tolerances bound the allowed cross-implementation variance for fields
// subject to floating-point or timing noise.
type Tolerances struct {
	TempKelvin   int     `yaml:"temp_kelvin"`
	ElevationDeg float64 `yaml:"elevation_deg"`
	IssuedAtSec  float64 `yaml:"issued_at_sec"`
}

// Timing configures the signal-deadline verifier.
type Timing struct {
	DeadlineSec float64   `yaml:"deadline_sec"`
	PhaseDelays []float64 `yaml:"phase_delays_sec"`
}

// Target declares one implementation in the config file.
type Target struct {
	Name     string   `yaml:"name"`
	Binary   string   `yaml:"binary"`
	Static   bool     `yaml:"static"`
	Optional bool     `yaml:"optional"` // absent binary is silent, not a skip per check
	BuildDir string   `yaml:"build_dir"`
	Build    []string `yaml:"build"` // shell-split not supported; each entry is space-separated argv
}

// Config is the full harness configuration.
type Config struct {
	Location   string     `yaml:"location"` // "lat,lon"
	Targets    []Target   `yaml:"targets"`
	Tolerances Tolerances `yaml:"tolerances"`
	Timing     Timing     `yaml:"timing"`
	SettleSec  float64    `yaml:"settle_sec"` // wait after artifact writes for inotify propagation
}

// TestLatLon are the default test coordinates (Chicago, IL - known NOAA
// coverage).
const (
	TestLat = 41.8781
	TestLon = -87.6298
)

// Default returns the built-in configuration, rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Location: fmt.Sprintf("%g,%g", TestLat, TestLon),
		Targets: []Target{
			{
				Name:     "C23",
				Binary:   filepath.Join(dir, "c23", "heliod"),
				BuildDir: filepath.Join(dir, "c23"),
				Build:    []string{"make clean", "make"},
			},
			{
				Name:     "Rust",
				Binary:   filepath.Join(dir, "rust", "target", "release", "heliod"),
				BuildDir: filepath.Join(dir, "rust"),
				Build:    []string{"cargo build --release"},
			},
			{
				Name:     "Rust-musl",
				Binary:   filepath.Join(dir, "rust", "target", "x86_64-unknown-linux-musl", "release", "heliod"),
				Static:   true,
				Optional: true,
				BuildDir: filepath.Join(dir, "rust"),
				Build:    []string{"cargo build --release --target x86_64-unknown-linux-musl --no-default-features --features noaa"},
			},
		},
		Tolerances: Tolerances{TempKelvin: 50, ElevationDeg: 0.5, IssuedAtSec: 5},
		Timing:     Timing{DeadlineSec: 3, PhaseDelays: []float64{0.5, 2.0, 5.0}},
		SettleSec:  2,
	}
}

// Load reads a YAML config file and fills unset fields from the defaults.
// An empty path returns the defaults for dir.
func Load(path, dir string) (*Config, error) {
	cfg := Default(dir)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	merge(cfg, &loaded)
	return cfg, nil
}

func merge(base, over *Config) {
	if over.Location != "" {
		base.Location = over.Location
	}
	if len(over.Targets) > 0 {
		base.Targets = over.Targets
	}
	if over.Tolerances.TempKelvin != 0 {
		base.Tolerances.TempKelvin = over.Tolerances.TempKelvin
	}
	if over.Tolerances.ElevationDeg != 0 {
		base.Tolerances.ElevationDeg = over.Tolerances.ElevationDeg
	}
	if over.Tolerances.IssuedAtSec != 0 {
		base.Tolerances.IssuedAtSec = over.Tolerances.IssuedAtSec
	}
	if over.Timing.DeadlineSec != 0 {
		base.Timing.DeadlineSec = over.Timing.DeadlineSec
	}
	if len(over.Timing.PhaseDelays) > 0 {
		base.Timing.PhaseDelays = over.Timing.PhaseDelays
	}
	if over.SettleSec != 0 {
		base.SettleSec = over.SettleSec
	}
}

// Settle returns the post-write settle delay as a duration.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.SettleSec * float64(time.Second))
}

// Deadline returns the signal deadline as a duration.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.Timing.DeadlineSec * float64(time.Second))
}

// Implementations converts the configured targets into domain values.
// Binaries are not checked for existence here; absence is a per-check skip.
func (c *Config) Implementations() []domain.Implementation {
	impls := make([]domain.Implementation, 0, len(c.Targets))
	for _, t := range c.Targets {
		impl := domain.Implementation{
			Name:     t.Name,
			Binary:   t.Binary,
			Static:   t.Static,
			BuildDir: t.BuildDir,
		}
		for _, cmd := range t.Build {
			bc := domain.BuildCommand{Argv: splitArgv(cmd), Timeout: buildTimeout(cmd)}
			if t.Optional {
				bc.SkipPatterns = []string{"target may not be installed", "can't find crate"}
			}
			impl.BuildCommands = append(impl.BuildCommands, bc)
		}
		impls = append(impls, impl)
	}
	return impls
}

// buildTimeout scales the bound to the tool: cargo cross builds are the
// slowest, plain make the fastest.
func buildTimeout(cmd string) time.Duration {
	switch {
	case strings.Contains(cmd, "--target"):
		return 180 * time.Second
	case strings.Contains(cmd, "cargo"):
		return 120 * time.Second
	case strings.Contains(cmd, "clean"):
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}

func splitArgv(cmd string) []string {
	return strings.Fields(cmd)
}
