package artifact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/store"
)

// EnsureInstalled resolves name's download target for the host's platform
// (applying any override), installs it via internal/store's package
// pipeline, and returns the final path (spec.md §4.E's ensure_installed
// operation). The tree lands in the depot's packages/ directory under the
// package name "artifact-<name>", not under artifacts/.
func EnsureInstalled(ctx context.Context, depot *store.Depot, pkgID uuid.UUID, doc *Document, overrides *Override, name string, host Platform) (string, error) {
	meta, ok := SelectDownloadable(doc, overrides, pkgID, name, host)
	if !ok {
		return "", depoterr.New(depoterr.KindUserInput, fmt.Sprintf("no artifact %q matches platform %s/%s", name, host.OS, host.Arch))
	}

	target := store.Target{
		UUID:     pkgID,
		Name:     "artifact-" + name,
		TreeHash: meta.TreeHash,
		Source:   store.Source{TarballURLs: meta.Downloads},
	}
	return store.Install(ctx, depot, target)
}

// SelectDownloadable applies Overrides.toml (by-hash first, then
// by-UUID+name, matching the teacher corpus's general "most specific wins"
// resolution style) before falling back to the package's own
// Artifacts.toml declaration. This is spec.md §4.E's
// select_downloadable_artifacts operation.
func SelectDownloadable(doc *Document, overrides *Override, pkgID uuid.UUID, name string, host Platform) (Meta, bool) {
	meta, ok := doc.Select(name, host)
	if !ok {
		return Meta{}, false
	}

	if overrides != nil {
		if t, ok := overrides.ByHash[meta.TreeHash.String()]; ok {
			return applyOverride(meta, t), true
		}
		key := pkgID.String() + "/" + name
		if t, ok := overrides.ByUUIDName[key]; ok {
			return applyOverride(meta, t), true
		}
	}
	return meta, true
}

func applyOverride(meta Meta, t OverrideTarget) Meta {
	if len(t.Downloads) > 0 {
		meta.Downloads = t.Downloads
	}
	return meta
}

// BindArtifact records a newly built artifact into doc, returning the
// updated document (spec.md §4.E's bind_artifact! operation — creating a
// fresh Artifacts.toml entry for a locally produced build, as opposed to
// EnsureInstalled which fetches one that's already registered).
func BindArtifact(doc *Document, name string, meta Meta) *Document {
	doc.Entries[name] = append(doc.Entries[name], meta)
	return doc
}

// CreateArtifact returns the content hash of a local build tree already on
// disk (e.g. the output of compiling a package's native extension),
// computed the same way component D does, so it can subsequently be bound
// into Artifacts.toml via BindArtifact. It does not copy or move buildDir
// anywhere; the tree stays where it is.
func CreateArtifact(buildDir string) (model.TreeHash, error) {
	return store.ComputeTreeHash(buildDir)
}
