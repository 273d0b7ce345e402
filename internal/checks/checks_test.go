package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heliod-project/heliconf/internal/domain"
)

func TestBuildWarnings(t *testing.T) {
	stderr := `   Compiling heliod v1.2.0 (warning-free build expected)
warning: unused variable ` + "`x`" + `
   Finished release [optimized] target(s) in 12.3s
note: #[warn(unused_variables)] on by default
some_file.c:42: warning: implicit declaration
warning: use of deprecated item 'foo'
warning: use of Deprecated API 'bar'
`
	got := buildWarnings(stderr)
	assert.Equal(t, []string{
		"warning: unused variable `x`",
		"some_file.c:42: warning: implicit declaration",
	}, got)
}

func TestBuildWarningsClean(t *testing.T) {
	assert.Empty(t, buildWarnings("   Compiling heliod\n   Finished release\n"))
}

func TestMatchSkipPattern(t *testing.T) {
	reason, ok := matchSkipPattern(
		"error[E0463]: can't find crate for `std`\nnote: the x86_64-unknown-linux-musl target may not be installed",
		[]string{"target may not be installed", "can't find crate"})
	assert.True(t, ok)
	assert.Equal(t, "can't find crate", reason)

	_, ok = matchSkipPattern("plain link error", []string{"target may not be installed"})
	assert.False(t, ok)
}

func TestFirstLines(t *testing.T) {
	assert.Equal(t, "a\nb", firstLines("a\nb\nc\nd", 2))
	assert.Equal(t, "a", firstLines("a\n", 5))
}

func TestMinutesApart(t *testing.T) {
	diff, ok := minutesApart("06:12", "06:14")
	assert.True(t, ok)
	assert.Equal(t, 2, diff)

	diff, ok = minutesApart("19:58", "20:01")
	assert.True(t, ok)
	assert.Equal(t, 3, diff)

	_, ok = minutesApart("junk", "06:14")
	assert.False(t, ok)
}

func TestCountOverrideMentions(t *testing.T) {
	output := `daemon started (io_uring ready)
Override active: 2900K for 1 min
applying manual temperature
tick
Override active: 4500K for 5 min
`
	assert.Equal(t, 3, countOverrideMentions(output))
	assert.Equal(t, 0, countOverrideMentions("tick\ntick\n"))
}

func TestMentionsHelpers(t *testing.T) {
	assert.True(t, mentionsOverride("MANUAL OVERRIDE engaged"))
	assert.False(t, mentionsOverride("steady state"))
	assert.True(t, mentionsResume("returning to solar schedule"))
	assert.True(t, mentionsResume("override cleared"))
	assert.False(t, mentionsResume("still manual"))
}

func TestLabel(t *testing.T) {
	impl := domain.Implementation{Name: "C23"}
	assert.Equal(t, "[C23] --help exits 0", label(impl, "--help exits 0"))
}

func TestBuiltMissingBinary(t *testing.T) {
	assert.False(t, built(domain.Implementation{Binary: "/nonexistent/heliod"}))
	assert.False(t, built(domain.Implementation{Binary: t.TempDir()}))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", excerpt("  abc  ", 10))
	assert.Equal(t, "ab", excerpt("abcdef", 2))
}
