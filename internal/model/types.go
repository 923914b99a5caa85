package model

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NamePattern is the required shape of a package name (spec.md §3).
var NamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateName returns an error if name does not match NamePattern.
func ValidateName(name string) error {
	if !NamePattern.MatchString(name) {
		return errors.Errorf("invalid package name %q: must match %s", name, NamePattern.String())
	}
	return nil
}

// SourceKind distinguishes the mutually-exclusive ways a package's tree can
// be identified, per spec.md §9 ("Union types over spec variants").
type SourceKind int

const (
	// SourceRegistry: identified by a tree hash recorded in a registry.
	SourceRegistry SourceKind = iota
	// SourcePath: a filesystem-local ("dev-tracked") dependency.
	SourcePath
	// SourceRepo: a fixed git repository + revision.
	SourceRepo
	// SourceStdlib: a host-runtime package with no version and no hash.
	SourceStdlib
)

// RepoInfo is the {source, rev, subdir} triple for a git-tracked package.
type RepoInfo struct {
	Source string
	Rev    string
	Subdir string
}

func (r RepoInfo) IsZero() bool { return r == RepoInfo{} }

// PackageSpec is the transient union type used as input/output of most
// operations (spec.md §3). Callers must not mutate a shared PackageSpec;
// Refine* methods return a copy.
type PackageSpec struct {
	Name    string
	UUID    uuid.UUID
	Version string // concrete semver text; empty for stdlib-without-version
	Kind    SourceKind

	TreeHash TreeHash // populated iff Kind == SourceRegistry or SourceRepo
	Repo     RepoInfo // populated iff Kind == SourceRepo
	Path     string   // populated iff Kind == SourcePath

	Pinned bool

	// transient source-resolution hints, not persisted
	URL string
	Rev string
}

// HasUUID reports whether spec carries a non-nil UUID.
func (s PackageSpec) HasUUID() bool { return s.UUID != uuid.Nil }

// WithPinned returns a copy of s with Pinned set, leaving s untouched.
func (s PackageSpec) WithPinned(pinned bool) PackageSpec {
	cp := s
	cp.Pinned = pinned
	return cp
}

// WithTreeHash returns a copy of s with the tree hash set.
func (s PackageSpec) WithTreeHash(h TreeHash) PackageSpec {
	cp := s
	cp.TreeHash = h
	return cp
}
