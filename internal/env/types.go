// Package env implements component A: Project and Manifest I/O, the
// declared/resolved environment model, and process-wide activation.
package env

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/semverx"
)

// ManifestName and JuliaManifestName are the two filenames a manifest may
// carry (spec.md §6); ProjectName/JuliaProjectName likewise for the project.
const (
	ProjectName      = "Project.toml"
	JuliaProjectName = "JuliaProject.toml"
	ManifestName     = "Manifest.toml"
	JuliaManifestName = "JuliaManifest.toml"

	manifestFormat = "2.0"
)

// SourceEntry pins a declared dep to a non-registry source (spec.md §3).
type SourceEntry struct {
	Path   string
	URL    string
	Rev    string
	Subdir string
}

// Project is the declared state of an environment (spec.md §3).
type Project struct {
	Name    string
	UUID    uuid.UUID
	Version string

	Deps    map[string]uuid.UUID
	Compat  map[string]semverx.CompatExpr
	Extras  map[string]uuid.UUID
	Targets map[string][]string
	Sources map[string]SourceEntry

	// Extra carries any unrecognized top-level keys verbatim, so a
	// round-trip write never silently drops data (P6).
	Extra map[string]interface{}
}

// IsPackage reports whether the project itself is a package: name, uuid and
// version are all present (spec.md §3).
func (p *Project) IsPackage() bool {
	return p.Name != "" && p.UUID != uuid.Nil && p.Version != ""
}

// ManifestEntry is the resolved record for one package in one environment
// (spec.md §3).
type ManifestEntry struct {
	Name    string
	UUID    uuid.UUID
	Version string // empty for stdlibs without a version

	TreeHash model.TreeHash // zero iff Path != "", Repo is set, or this is an unversioned stdlib
	Path     string         // non-empty for dev-tracked packages
	Repo     model.RepoInfo // non-zero iff this package tracks a git repo

	Pinned bool
	Deps   map[string]uuid.UUID

	Extra map[string]interface{}
}

// SourceKind reports which of {path, repo, tree_hash, stdlib} identifies entry,
// per spec.md §3's "exactly one of" invariant.
func (e ManifestEntry) SourceKind() model.SourceKind {
	switch {
	case e.Path != "":
		return model.SourcePath
	case !e.Repo.IsZero():
		return model.SourceRepo
	case !e.TreeHash.IsZero():
		return model.SourceRegistry
	default:
		return model.SourceStdlib
	}
}

// Manifest is the resolved state of an environment (spec.md §3).
type Manifest struct {
	JuliaVersion   string
	ManifestFormat string
	ProjectHash    string

	Deps map[uuid.UUID]ManifestEntry
}

// NewManifest returns an empty manifest stamped with the current format
// version and the given host runtime version.
func NewManifest(juliaVersion string) *Manifest {
	return &Manifest{
		JuliaVersion:   juliaVersion,
		ManifestFormat: manifestFormat,
		Deps:           make(map[uuid.UUID]ManifestEntry),
	}
}

// validateProject enforces spec.md §3's Project invariants.
func validateProject(p *Project) error {
	seenUUID := make(map[uuid.UUID]string, len(p.Deps))
	for name, id := range p.Deps {
		if err := model.ValidateName(name); err != nil {
			return errors.Wrap(err, "project deps")
		}
		if other, dup := seenUUID[id]; dup {
			return errors.Errorf("uuid %s used by both %q and %q in deps", id, other, name)
		}
		seenUUID[id] = name
	}

	allNames := make(map[string]bool, len(p.Deps)+len(p.Extras))
	for name := range p.Deps {
		allNames[name] = true
	}
	for name := range p.Extras {
		allNames[name] = true
	}

	for key := range p.Compat {
		if key == "julia" {
			continue
		}
		if !allNames[key] {
			return errors.Errorf("compat entry %q does not name a declared dep or extra", key)
		}
	}

	for target, names := range p.Targets {
		for _, name := range names {
			if !allNames[name] {
				return errors.Errorf("target %q references undeclared name %q", target, name)
			}
		}
	}

	return nil
}

// validateManifestReachability enforces spec.md §3's P2: every manifest
// entry is reachable from project.Deps via transitive ManifestEntry.Deps.
func validateManifestReachability(p *Project, m *Manifest) error {
	reachable := make(map[uuid.UUID]bool, len(m.Deps))
	var walk func(id uuid.UUID)
	walk = func(id uuid.UUID) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		entry, ok := m.Deps[id]
		if !ok {
			return
		}
		for _, depID := range entry.Deps {
			walk(depID)
		}
	}
	for _, id := range p.Deps {
		walk(id)
	}
	for id := range m.Deps {
		if !reachable[id] {
			return errors.Errorf("manifest entry %s is not reachable from project deps", id)
		}
	}
	return nil
}
