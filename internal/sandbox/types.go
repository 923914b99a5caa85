// Package sandbox implements the scoped temp-environment construction
// spec.md §9 describes for running a package's tests or build "as if it
// were the root project": synthesize a Project+Manifest in a fresh temp
// directory naming the target package as the sole declared dep and its
// test/build deps as direct deps, resolve into it (preserving versions
// from the parent manifest when possible), and hand back a ready-to-exec
// command plus a cleanup func. Running that command is explicitly out of
// scope (spec.md §1 Non-goals); this package stops at construction.
package sandbox

import (
	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/resolve"
)

// Request describes the package being sandboxed and the parent environment
// its test/build dependencies should try to preserve versions from.
type Request struct {
	TargetName string
	TargetUUID uuid.UUID

	// TestDeps are the target's test/build-only dependencies: name -> UUID,
	// added to the synthetic project as direct deps alongside the target.
	TestDeps map[string]uuid.UUID

	// ParentManifest supplies the "attempt to preserve versions from the
	// parent manifest" half of spec.md §9's sandbox description. May be nil
	// for a from-scratch sandbox.
	ParentManifest *env.Manifest

	JuliaVersion string
}

// Sandbox is a resolved, activated temp environment ready for a child
// process to run in.
type Sandbox struct {
	Dir    string
	Cache  *env.Cache
	Result *resolve.Result

	cleanup func() error
}

// Close removes the sandbox's temp directory. Callers must call this on
// every exit path, including an interrupt, per spec.md §9.
func (s *Sandbox) Close() error {
	if s.cleanup == nil {
		return nil
	}
	return s.cleanup()
}

// installedVersions extracts a resolve.Request's Installed map from a
// parent manifest, so the child resolve attempts PreserveAllInstalled
// before falling back to a looser tier.
func installedVersions(m *env.Manifest) map[uuid.UUID]*semver.Version {
	if m == nil {
		return nil
	}
	out := make(map[uuid.UUID]*semver.Version, len(m.Deps))
	for id, entry := range m.Deps {
		if entry.Version == "" {
			continue
		}
		v, err := semver.NewVersion(entry.Version)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out
}

// fixedFromParent carries forward any dev-tracked or repo-pinned entries
// in the parent manifest as Fixed nodes, so a sandboxed test run sees the
// same local/path override the parent environment was using.
func fixedFromParent(m *env.Manifest) []resolve.Fixed {
	if m == nil {
		return nil
	}
	var out []resolve.Fixed
	for id, entry := range m.Deps {
		if entry.Path == "" && entry.Repo.IsZero() {
			continue
		}
		out = append(out, resolve.Fixed{
			UUID:     id,
			Name:     entry.Name,
			TreeHash: entry.TreeHash,
			Repo:     entry.Repo,
		})
	}
	return out
}
