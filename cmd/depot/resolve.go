package main

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/resolve"
	"github.com/depotpm/depot/internal/store"
)

// runtimeVersion stamps a fresh manifest's julia_version header when no
// prior manifest supplies one to carry forward.
const runtimeVersion = "1.10.0"

// buildRequest turns a Cache's declared project (plus its prior manifest,
// if any) into a resolve.Request at the given preservation tier, the same
// shape internal/resolve's own tests construct by hand. depot, when
// non-nil, backs the PreserveAllInstalled tier's store-membership filter;
// pass nil where no depot is open (e.g. tests that never reach that tier).
func buildRequest(c *env.Cache, level resolve.PreserveLevel, depot *store.Depot) resolve.Request {
	req := resolve.Request{
		RootDeps: c.Project.Deps,
		Level:    level,
	}
	if depot != nil {
		req.InStore = func(id uuid.UUID, name string, treeHash model.TreeHash) bool {
			_, ok := depot.IsInstalled(id, name, treeHash)
			return ok
		}
	}
	if len(c.Project.Compat) > 0 {
		req.RootCompat = make(map[string]*semver.Constraints, len(c.Project.Compat))
		for name, expr := range c.Project.Compat {
			if constraint, err := semver.NewConstraint(expr.String()); err == nil {
				req.RootCompat[name] = constraint
			}
		}
	}
	if c.Manifest != nil {
		req.Installed = make(map[uuid.UUID]*semver.Version, len(c.Manifest.Deps))
		req.Direct = make(map[uuid.UUID]bool, len(c.Project.Deps))
		for _, id := range c.Project.Deps {
			req.Direct[id] = true
		}
		for id, entry := range c.Manifest.Deps {
			if entry.Path != "" || !entry.Repo.IsZero() {
				req.Fixed = append(req.Fixed, resolve.Fixed{
					UUID: id, Name: entry.Name, TreeHash: entry.TreeHash, Repo: entry.Repo,
				})
				continue
			}
			if entry.Version == "" {
				continue
			}
			v, err := semver.NewVersion(entry.Version)
			if err != nil {
				continue
			}
			req.Installed[id] = v
			if entry.Pinned {
				if constraint, err := semver.NewConstraint("=" + v.String()); err == nil {
					if req.RootCompat == nil {
						req.RootCompat = make(map[string]*semver.Constraints)
					}
					req.RootCompat[entry.Name] = constraint
				}
			}
		}
	}
	return req
}

// tieredSolve tries c's requested level and, when that reports a conflict
// and allowReresolve is set, every other tier in tierOrder's order
// (spec.md §4.C's tiered-driver recovery from ResolverConflict). It returns
// the first success; if every tier conflicts, it returns the requested
// level's conflict.
var tierOrder = []resolve.PreserveLevel{
	resolve.PreserveAllInstalled,
	resolve.PreserveAll,
	resolve.PreserveDirect,
	resolve.PreserveSemver,
	resolve.PreserveTieredInstalled,
	resolve.PreserveTiered,
	resolve.PreserveNone,
}

func tieredSolve(c *env.Cache, reg resolve.Registry, start resolve.PreserveLevel, allowReresolve bool, depot *store.Depot) (*resolve.Result, error) {
	result, conflict, err := resolve.Solve(buildRequest(c, start, depot), reg)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return result, nil
	}
	if !allowReresolve {
		return nil, conflict
	}
	for _, level := range tierOrder {
		if level == start {
			continue
		}
		result, conflict, err := resolve.Solve(buildRequest(c, level, depot), reg)
		if err != nil {
			return nil, err
		}
		if conflict == nil {
			return result, nil
		}
	}
	return nil, conflict
}

// applyAndInstall installs every resolved tree into ctx's depot and, only
// once every install has succeeded, writes result into c's manifest. Per
// spec.md §7's recovery policy (P10: a failing add/rm/up/pin/free leaves
// Project.toml and Manifest.toml on disk unchanged), the manifest must never
// be persisted ahead of the installs it describes — a tree-hash mismatch or
// an offline abort must not leave disk referencing trees that never arrived.
func applyAndInstall(ctx *Ctx, c *env.Cache, result *resolve.Result) error {
	juliaVersion := runtimeVersion
	if c.Manifest != nil && c.Manifest.JuliaVersion != "" {
		juliaVersion = c.Manifest.JuliaVersion
	}
	var prior map[uuid.UUID]env.ManifestEntry
	if c.Manifest != nil {
		prior = c.Manifest.Deps
	}

	manifest := env.NewManifest(juliaVersion)
	var targets []store.Target
	for _, sol := range result.Solutions {
		entry := env.ManifestEntry{
			Name: sol.Name,
			UUID: sol.UUID,
			Deps: sol.Deps,
		}
		if prev, ok := prior[sol.UUID]; ok {
			entry.Pinned = prev.Pinned
			entry.Path = prev.Path
		}
		if sol.Version != nil {
			entry.Version = sol.Version.String()
			entry.TreeHash = sol.TreeHash
			targets = append(targets, store.Target{
				UUID:     sol.UUID,
				Name:     sol.Name,
				TreeHash: sol.TreeHash,
				Source:   sourceFor(ctx, sol),
			})
		} else {
			entry.Repo = sol.Repo
		}
		manifest.Deps[sol.UUID] = entry
	}

	if len(targets) > 0 {
		if ctx.Options.Offline {
			for _, t := range targets {
				if _, installed := ctx.Depot.IsInstalled(t.UUID, t.Name, t.TreeHash); !installed {
					return depoterr.New(depoterr.KindNetwork, "offline mode forbids fetching "+t.Name)
				}
			}
		}
		installOpts := store.InstallOptions{IgnoreHashMismatch: ctx.Options.IgnoreHashes}
		results := store.InstallAll(context.Background(), ctx.Depot, targets, ctx.Options.ConcurrentDownloads, installOpts)
		var firstErr error
		for _, r := range results {
			if r.Warning != nil {
				ctx.Log.Warnf("%s: %s", r.Target.Name, r.Warning)
			}
			if r.Err != nil && firstErr == nil {
				firstErr = errors.Wrapf(r.Err, "installing %s", r.Target.Name)
			}
		}
		if firstErr != nil {
			return firstErr
		}
	}

	c.Manifest = manifest
	c.MarkMutated()
	if err := c.Write(); err != nil {
		return errors.Wrap(err, "writing manifest")
	}
	return nil
}

// sourceFor builds the ordered fetch-source list for a resolved version:
// a package-server tarball URL first (when JULIA_PKG_SERVER is set), then
// the registry's own repo URL as the git-clone fallback, per spec.md §4.D's
// "tarball first, git fallback" ordering.
func sourceFor(ctx *Ctx, sol resolve.Solution) store.Source {
	src := store.Source{Rev: "v" + versionOrEmpty(sol)}
	if ctx.Options.ServerURL != "" {
		src.TarballURLs = []string{
			ctx.Options.ServerURL + "/package/" + sol.UUID.String() + "/" + sol.TreeHash.String(),
		}
	}
	if info, err := ctx.View.Lookup(sol.UUID); err == nil && info != nil {
		src.RepoURL = info.RepoURL
	}
	return src
}

func versionOrEmpty(sol resolve.Solution) string {
	if sol.Version == nil {
		return ""
	}
	return sol.Version.String()
}
