// Package resolve implements component C: the dependency resolver.
//
// The shape is grounded on the teacher's CSP-style solver (selection.go,
// version_queue.go, satisfy.go, solver.go): a priority queue of unresolved
// identifiers, a per-identifier "selection" recording who depends on whom
// under what constraint, and a version queue per identifier that yields
// candidates highest-version-first with chronological-backtrack retry on
// failure. The identifier space is generalized from the teacher's Go import
// paths to this spec's UUIDs, and constraint intersection uses
// Masterminds/semver rather than the teacher's custom Constraint interface.
package resolve

import (
	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/model"
)

// PreserveLevel controls how aggressively the solver may move an already
// resolved dependency away from its manifest-recorded version (spec.md §4.C).
type PreserveLevel int

const (
	PreserveAllInstalled PreserveLevel = iota
	PreserveAll
	PreserveDirect
	PreserveSemver
	PreserveNone
	PreserveTiered
	PreserveTieredInstalled
)

// Fixed is a caller-pinned node the solver must not move: a dev-tracked
// path dependency or a repo-pinned dependency at an exact revision.
type Fixed struct {
	UUID     uuid.UUID
	Name     string
	TreeHash model.TreeHash
	Repo     model.RepoInfo
}

// Request describes one resolve() invocation (spec.md §4.C).
type Request struct {
	// RootDeps are the project's direct dependencies: name -> UUID.
	RootDeps map[string]uuid.UUID
	// RootCompat are the project's compat constraints: name -> constraint.
	RootCompat map[string]*semver.Constraints
	// Installed is the prior manifest's package->version map, consulted
	// under every PreserveLevel except PreserveNone.
	Installed map[uuid.UUID]*semver.Version
	// Direct marks the project's direct dependencies; PreserveDirect and
	// PreserveSemver constrain only these.
	Direct map[uuid.UUID]bool
	// Fixed nodes the solver treats as already resolved and non-negotiable.
	Fixed []Fixed
	Level PreserveLevel
	// InStore reports whether id@treeHash is already present in the local
	// content store. Consulted as a hard candidate filter under
	// PreserveAllInstalled (spec.md §4.C tier 1: "only versions already
	// present in the content store are candidates"). Nil disables the
	// filter, as when resolving before any depot is open.
	InStore func(id uuid.UUID, name string, treeHash model.TreeHash) bool
}

// Registry is the minimal read surface the solver needs from component B,
// so this package doesn't import internal/registry directly and stays
// testable against fakes.
type Registry interface {
	// VersionsOf returns id's known non-yanked versions, highest first.
	VersionsOf(id uuid.UUID) ([]*semver.Version, error)
	// DepsOf returns the dependency set (name -> UUID) a specific version
	// of id declares.
	DepsOf(id uuid.UUID, v *semver.Version) (map[string]uuid.UUID, error)
	// CompatOf returns the compat constraints a specific version of id
	// declares against its own dependencies (name -> constraint).
	CompatOf(id uuid.UUID, v *semver.Version) (map[string]*semver.Constraints, error)
	// TreeHashOf returns the content tree hash for a specific version.
	TreeHashOf(id uuid.UUID, v *semver.Version) (model.TreeHash, error)
	// NameOf returns id's registered name.
	NameOf(id uuid.UUID) (string, error)
}

// Solution is one resolved package in the output set.
type Solution struct {
	UUID     uuid.UUID
	Name     string
	Version  *semver.Version // nil for Fixed path/repo-tracked entries
	TreeHash model.TreeHash
	Repo     model.RepoInfo
	Deps     map[string]uuid.UUID
}

// Result is resolve()'s success output: a deterministic solution set,
// ordered by UUID for reproducible manifest writes (spec.md P5).
type Result struct {
	Solutions []Solution
}

// Conflict is resolve()'s failure output: the minimal set of constraints
// that cannot be simultaneously satisfied (spec.md §8 scenario 3).
type Conflict struct {
	Target uuid.UUID
	Name   string
	// Requirers names who-wants-what, forming the minimal unsatisfiable
	// core: each entry names a package (or "root") and the constraint text
	// it imposed on Target.
	Requirers []ConflictRequirer
}

type ConflictRequirer struct {
	From       string // "root" or a package name
	Constraint string
}

func (c *Conflict) Error() string {
	msg := "no version of " + c.Name + " satisfies all requirements:"
	for _, r := range c.Requirers {
		msg += " " + r.From + " requires " + r.Constraint + ";"
	}
	return msg
}
