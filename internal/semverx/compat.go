// Package semverx implements compat-expression parsing and the
// pre-1.0 version compatibility rule depot's resolver relies on.
package semverx

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// CompatExpr is a disjunction of semver intervals, stored both parsed and
// as the original text so round-tripping through TOML (P6) reproduces the
// user's exact spelling.
type CompatExpr struct {
	orig        string
	constraints *semver.Constraints
}

// ParseCompat parses a compat expression. An empty string means "any version".
func ParseCompat(expr string) (CompatExpr, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		c, _ := semver.NewConstraint("*")
		return CompatExpr{orig: expr, constraints: c}, nil
	}
	c, err := semver.NewConstraint(trimmed)
	if err != nil {
		return CompatExpr{}, errors.Wrapf(err, "unparseable compat expression %q", expr)
	}
	return CompatExpr{orig: expr, constraints: c}, nil
}

// String returns the original, user-supplied text.
func (c CompatExpr) String() string { return c.orig }

// Check reports whether v satisfies the compat expression.
func (c CompatExpr) Check(v *semver.Version) bool {
	if c.constraints == nil {
		return true
	}
	return c.constraints.Check(v)
}

// CompatibleWithin implements spec.md §9's pre-1.0 compatibility rule,
// bit-exactly, rather than delegating to Masterminds/semver's caret
// operator (whose pre-1.0 semantics differ subtly from the rule this spec
// mandates):
//
//   - at or above 1.0.0: incompatible across a major version bump.
//   - below 1.0.0: incompatible across a minor version bump (0.x.y and
//     0.x.z are compatible for any y,z; 0.x and 0.w are not when x != w).
//
// base is the version a manifest entry currently records; candidate is a
// version under consideration as a replacement. They are compatible when
// they share the same major version at or above 1.0.0, or the same minor
// version below it.
func CompatibleWithin(base, candidate *semver.Version) bool {
	if base == nil || candidate == nil {
		return false
	}
	if base.Major() >= 1 || candidate.Major() >= 1 {
		return base.Major() == candidate.Major()
	}
	return base.Minor() == candidate.Minor()
}
