// Package fixtures provides a scripted fake heliod implementation that
// honors the full CLI surface, used by the integration tests so the
// harness can be exercised without building real daemons.
package fixtures

import (
	"os"
	"path/filepath"
)

// Variant selects how the fake daemon behaves under supervision.
type Variant string

const (
	// WellBehaved reaches steady state and exits promptly on SIGTERM.
	WellBehaved Variant = "well-behaved"
	// IgnoresSigterm masks SIGTERM, the orphan-producing regression.
	IgnoresSigterm Variant = "ignores-sigterm"
	// NoBackend fails gamma init and exits during startup.
	NoBackend Variant = "no-backend"
)

// FakeHeliod writes a POSIX shell script implementing the heliod CLI
// protocol against the sandboxed HOME.
type FakeHeliod struct {
	Dir     string
	Name    string
	Variant Variant
}

// NewFakeHeliod creates a well-behaved fake rooted at dir.
func NewFakeHeliod(dir, name string) *FakeHeliod {
	return &FakeHeliod{Dir: dir, Name: name, Variant: WellBehaved}
}

// Create writes the script and returns its path.
func (f *FakeHeliod) Create() (string, error) {
	path := filepath.Join(f.Dir, f.Name)
	if err := os.WriteFile(path, []byte(f.script()), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func (f *FakeHeliod) daemonBody() string {
	switch f.Variant {
	case IgnoresSigterm:
		return `    trap '' TERM
    echo "daemon started (io_uring ready, 1 syscall/tick)" >&2
    while :; do sleep 0.2; done`
	case NoBackend:
		return `    echo "Failed to open gamma backend: no display" >&2
    exit 1`
	default:
		return `    trap 'echo "shutting down, restoring gamma" >&2; exit 0' TERM INT
    echo "daemon started (io_uring ready, 1 syscall/tick)" >&2
    LAST=""
    while :; do
        CUR=$(cat "$OVR" 2>/dev/null || echo none)
        if [ "$CUR" != "$LAST" ]; then
            LAST=$CUR
            if printf '%s' "$CUR" | grep -q '"active": true'; then
                echo "Override active, applying manual temperature" >&2
            elif [ "$CUR" != none ]; then
                echo "Override cleared, resuming solar schedule" >&2
            fi
        fi
        sleep 0.2
    done`
	}
}

func (f *FakeHeliod) script() string {
	return `#!/bin/sh
CONF_DIR="$HOME/.config/heliod"
CONF="$CONF_DIR/config.ini"
OVR="$CONF_DIR/override.json"
mkdir -p "$CONF_DIR"

case "$1" in
--help)
    echo "usage: heliod [--daemon|--status|--set-location LAT,LON|--set TEMP MIN|--resume|--reset|--help]"
    exit 0
    ;;
--set-location)
    [ -n "$2" ] || exit 2
    LAT=${2%%,*}
    LON=${2#*,}
    printf '[location]\nlatitude=%s\nlongitude=%s\n' "$LAT" "$LON" > "$CONF"
    exit 0
    ;;
--set)
    [ $# -ge 3 ] || exit 2
    TEMP=$2
    MIN=$3
    [ "$TEMP" -ge 1000 ] 2>/dev/null || exit 2
    [ "$TEMP" -le 10000 ] || exit 2
    printf '{"active": true, "target_temp": %s, "duration_minutes": %s, "issued_at": %s.0, "start_temp": 0}\n' \
        "$TEMP" "$MIN" "$(date +%s)" > "$OVR"
    exit 0
    ;;
--resume)
    printf '{"active": false, "target_temp": 0, "duration_minutes": 0, "issued_at": %s.0, "start_temp": 0}\n' \
        "$(date +%s)" > "$OVR"
    exit 0
    ;;
--reset)
    rm -f "$OVR"
    echo "Gamma reset to neutral"
    exit 0
    ;;
--status)
    [ -f "$CONF" ] || { echo "no location configured" >&2; exit 1; }
    LAT=$(sed -n 's/latitude=//p' "$CONF")
    LON=$(sed -n 's/longitude=//p' "$CONF")
    echo "Location: $LAT, $LON"
    if [ -f "$OVR" ] && grep -q '"active": true' "$OVR"; then
        T=$(sed 's/.*"target_temp": \([0-9]*\).*/\1/' "$OVR")
        echo "Target temperature: ${T}K (MANUAL OVERRIDE)"
        echo "Mode: manual"
    else
        echo "Target temperature: 4500K"
        echo "Mode: continuous"
    fi
    echo "Sunrise:  06:12"
    echo "Sunset:   19:33"
    echo "Sun elevation:  23.50"
    exit 0
    ;;
--daemon)
` + f.daemonBody() + `
    ;;
*)
    echo "unknown option: $1" >&2
    exit 2
    ;;
esac
`
}
