package registry

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestParseVersionRangePrefix(t *testing.T) {
	c, err := parseVersionRange("1.0")
	if err != nil {
		t.Fatalf("parseVersionRange: %v", err)
	}
	v := semver.MustParse("1.0.5")
	if !c.Check(v) {
		t.Fatalf("expected 1.0.5 to satisfy range 1.0")
	}
}

func TestParseVersionRangeHyphen(t *testing.T) {
	c, err := parseVersionRange("1.0-1.5")
	if err != nil {
		t.Fatalf("parseVersionRange: %v", err)
	}
	if !c.Check(semver.MustParse("1.2.3")) {
		t.Fatalf("expected 1.2.3 to satisfy range 1.0-1.5")
	}
	if c.Check(semver.MustParse("2.0.0")) {
		t.Fatalf("expected 2.0.0 to not satisfy range 1.0-1.5")
	}
}
