package semverx

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func mustVersion(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := semver.NewVersion(s)
	if err != nil {
		t.Fatalf("NewVersion(%q): %v", s, err)
	}
	return v
}

func TestCompatibleWithinPre1(t *testing.T) {
	a := mustVersion(t, "0.5.3")
	b := mustVersion(t, "0.5.9")
	c := mustVersion(t, "0.6.0")

	if !CompatibleWithin(a, b) {
		t.Fatalf("0.5.3 and 0.5.9 should be compatible")
	}
	if CompatibleWithin(a, c) {
		t.Fatalf("0.5.3 and 0.6.0 should NOT be compatible (minor bump below 1.0)")
	}
}

func TestCompatibleWithinPost1(t *testing.T) {
	a := mustVersion(t, "1.2.3")
	b := mustVersion(t, "1.9.0")
	c := mustVersion(t, "2.0.0")

	if !CompatibleWithin(a, b) {
		t.Fatalf("1.2.3 and 1.9.0 should be compatible (same major)")
	}
	if CompatibleWithin(a, c) {
		t.Fatalf("1.2.3 and 2.0.0 should NOT be compatible")
	}
}

func TestParseCompatRoundTrip(t *testing.T) {
	expr, err := ParseCompat("^1.2.0, < 2.0.0")
	if err != nil {
		t.Fatalf("ParseCompat: %v", err)
	}
	if expr.String() != "^1.2.0, < 2.0.0" {
		t.Fatalf("expected original text preserved, got %q", expr.String())
	}
	if !expr.Check(mustVersion(t, "1.5.0")) {
		t.Fatalf("expected 1.5.0 to satisfy ^1.2.0, < 2.0.0")
	}
	if expr.Check(mustVersion(t, "2.0.0")) {
		t.Fatalf("expected 2.0.0 to NOT satisfy ^1.2.0, < 2.0.0")
	}
}

func TestParseCompatEmptyIsAny(t *testing.T) {
	expr, err := ParseCompat("")
	if err != nil {
		t.Fatalf("ParseCompat(\"\"): %v", err)
	}
	if !expr.Check(mustVersion(t, "0.0.1")) {
		t.Fatalf("empty compat expression should accept any version")
	}
}

func TestParseCompatUnparseable(t *testing.T) {
	if _, err := ParseCompat("not a constraint!!"); err == nil {
		t.Fatalf("expected error for unparseable compat expression")
	}
}
