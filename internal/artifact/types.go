// Package artifact implements component E: platform-tagged binary blobs
// bound to a package by name via Artifacts.toml, with Overrides.toml
// letting a depot redirect a named artifact to a locally-trusted build
// (by content hash) or a whole package's artifacts (by UUID+name).
//
// There is no teacher equivalent (golang-dep has no binary-artifact
// concept), so this is built fresh in the teacher's idiom, reusing
// internal/store's download-verify-move pipeline and internal/tomlfile
// for the on-disk shape, per spec.md §4.E.
package artifact

import "github.com/depotpm/depot/internal/model"

// Platform is the set of tags a platform-tagged artifact is keyed on:
// os/arch always present, the rest optional refinements a package may use
// to distinguish builds (e.g. libc flavor, a GPU toolkit version).
type Platform struct {
	OS     string
	Arch   string
	Tags   map[string]string
}

// Matches reports whether want (the host's platform) is satisfied by p (an
// artifact's declared platform): os/arch must match exactly, and every tag
// p declares must also be present and equal in want. want may carry tags p
// doesn't care about — an artifact only constrains what it declares.
func (p Platform) Matches(want Platform) bool {
	if p.OS != want.OS || p.Arch != want.Arch {
		return false
	}
	for k, v := range p.Tags {
		if want.Tags[k] != v {
			return false
		}
	}
	return true
}

// Meta is one artifact's metadata record as declared in Artifacts.toml.
type Meta struct {
	Name      string
	Platform  Platform
	TreeHash  model.TreeHash
	Downloads []string // ordered URL list, same preference order as component D
	Executable bool
	LazyLoad  bool
}

// Override redirects an artifact by content hash (global, any package) or
// by (package UUID, artifact name) pair, as declared in Overrides.toml.
type Override struct {
	// ByHash overrides every artifact whose content hash matches, keyed by
	// a textual hash (as it appears in Overrides.toml's [hash."..."] table).
	ByHash map[string]OverrideTarget
	// ByUUIDName overrides one named artifact of one package, keyed by
	// "uuid/name".
	ByUUIDName map[string]OverrideTarget
}

// OverrideTarget is what an override points the artifact lookup at: either
// a different load path on disk, or a different set of download locations.
type OverrideTarget struct {
	Path      string
	Downloads []string
}
