package sandbox

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/resolve"
)

// tieredFallback is the order New tries PreserveLevel tiers in: start by
// trying to keep every installed version exactly as the parent manifest
// had it, loosening only as far as needed to find any solution at all,
// matching spec.md §9's "attempt to preserve versions from the parent
// manifest; re-resolving only if preservation is infeasible".
var tieredFallback = []resolve.PreserveLevel{
	resolve.PreserveAllInstalled,
	resolve.PreserveTieredInstalled,
	resolve.PreserveSemver,
	resolve.PreserveNone,
}

// New synthesizes a temp Project+Manifest naming req.TargetUUID as the sole
// declared dep and req.TestDeps as additional direct deps, resolves it
// against reg (preferring the parent manifest's installed versions where
// possible), and returns an activated Sandbox ready for a caller to build
// an *exec.Cmd against its Dir. The caller owns running any child process;
// this package only constructs the environment.
func New(req Request, reg resolve.Registry) (*Sandbox, error) {
	cache, err := env.Activate(nil, nil, "", env.ActivateOptions{Temp: true})
	if err != nil {
		return nil, errors.Wrap(err, "creating sandbox environment")
	}

	cleanup := func() error { return os.RemoveAll(cache.AbsRoot) }

	if err := cache.AddDep(req.TargetName, req.TargetUUID); err != nil {
		cleanup()
		return nil, errors.Wrap(err, "adding sandboxed target")
	}
	for name, id := range req.TestDeps {
		if id == req.TargetUUID {
			continue
		}
		if err := cache.AddDep(name, id); err != nil {
			cleanup()
			return nil, errors.Wrap(err, "adding test dependency "+name)
		}
	}

	result, err := resolveWithFallback(cache, req, reg)
	if err != nil {
		cleanup()
		return nil, err
	}

	manifest := env.NewManifest(req.JuliaVersion)
	for _, sol := range result.Solutions {
		manifest.Deps[sol.UUID] = env.ManifestEntry{
			Name:     sol.Name,
			UUID:     sol.UUID,
			Version:  versionString(sol),
			TreeHash: sol.TreeHash,
			Repo:     sol.Repo,
			Deps:     sol.Deps,
		}
	}
	cache.Manifest = manifest
	cache.MarkMutated()
	if err := cache.Write(); err != nil {
		cleanup()
		return nil, errors.Wrap(err, "writing sandbox manifest")
	}

	return &Sandbox{Dir: cache.AbsRoot, Cache: cache, Result: result, cleanup: cleanup}, nil
}

func versionString(sol resolve.Solution) string {
	if sol.Version == nil {
		return ""
	}
	return sol.Version.String()
}

// resolveWithFallback tries each tier in tieredFallback (starting from
// req's own implied preference toward the parent manifest) until one
// produces a solution, returning the first conflict encountered if every
// tier is exhausted.
func resolveWithFallback(cache *env.Cache, req Request, reg resolve.Registry) (*resolve.Result, error) {
	installed := installedVersions(req.ParentManifest)
	fixed := fixedFromParent(req.ParentManifest)
	direct := make(map[uuid.UUID]bool, len(cache.Project.Deps))
	for _, id := range cache.Project.Deps {
		direct[id] = true
	}

	var lastConflict *resolve.Conflict
	for _, level := range tieredFallback {
		solveReq := resolve.Request{
			RootDeps:  cache.Project.Deps,
			Installed: installed,
			Direct:    direct,
			Fixed:     fixed,
			Level:     level,
		}
		result, conflict, err := resolve.Solve(solveReq, reg)
		if err != nil {
			return nil, err
		}
		if conflict == nil {
			return result, nil
		}
		lastConflict = conflict
	}
	return nil, lastConflict
}
