// Package registry implements component B: a read-only index of known
// packages materialized from one or more on-disk registry clones, unioned
// into a single View.
//
// The on-disk shape follows a Julia-style General registry: packages are
// sharded by first letter (A/Example, C/CSV, ...), with Package.toml,
// Versions.toml, Deps.toml and Compat.toml per package.
package registry

import (
	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/model"
)

// PackageInfo is the per-UUID registry record (spec.md §3).
type PackageInfo struct {
	UUID    uuid.UUID
	Name    string
	RepoURL string
	Subdir  string

	Versions map[string]VersionInfo // keyed by version string, ascending via SortedVersions
}

// VersionInfo is one version's record within a PackageInfo.
type VersionInfo struct {
	Version  *semver.Version
	TreeHash model.TreeHash
	Yanked   bool

	// Deps maps a dependency's local name to its UUID, as declared by
	// Deps.toml for the version range containing this version.
	Deps map[string]uuid.UUID
	// Compat maps a dependency's local name to the compat constraint this
	// version requires of it, as declared by Compat.toml.
	Compat map[string]*semver.Constraints
}

// SortedVersions returns info.Versions' keys parsed and sorted ascending.
func (info *PackageInfo) SortedVersions() []*semver.Version {
	out := make([]*semver.Version, 0, len(info.Versions))
	for _, v := range info.Versions {
		out = append(out, v.Version)
	}
	semver.Sort(out)
	return out
}
