package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/gc"
	"github.com/depotpm/depot/internal/store"
)

// newInstantiateCmd builds `depot instantiate`: if the project has no
// manifest, resolve one from scratch; otherwise install every manifest
// entry that isn't already present in the depot, without moving any
// already-resolved version (spec.md §4.D's download side of instantiate).
func newInstantiateCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "instantiate",
		Short: "Download every dependency the manifest (or project) requires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}

			if c.Manifest == nil {
				result, err := tieredSolve(c, ctx.View, ctx.Options.Preserve, true, ctx.Depot)
				if err != nil {
					return err
				}
				if err := applyAndInstall(ctx, c, result); err != nil {
					return err
				}
			} else if err := installFromManifest(ctx, c); err != nil {
				return err
			}

			if err := gc.LogUsage(ctx.DepotPaths[0], c.AbsRoot); err != nil {
				ctx.Log.Warnf("recording usage: %s", err)
			}

			if ctx.Options.GCAuto {
				if _, err := gc.Sweep(ctx.DepotPaths[0], gc.Options{CollectDelay: ctx.Options.CollectDelay}); err != nil {
					ctx.Log.Warnf("opportunistic gc sweep: %s", err)
				}
			}
			return nil
		},
	}
}

// installFromManifest fetches every registry-resolved manifest entry not
// already installed, leaving an existing manifest's choices untouched.
func installFromManifest(ctx *Ctx, c *env.Cache) error {
	var targets []store.Target
	for id, entry := range c.Manifest.Deps {
		if entry.Version == "" {
			continue
		}
		if _, ok := ctx.Depot.IsInstalled(id, entry.Name, entry.TreeHash); ok {
			continue
		}
		src := store.Source{Rev: "v" + entry.Version}
		if info, err := ctx.View.Lookup(id); err == nil && info != nil {
			src.RepoURL = info.RepoURL
		}
		if ctx.Options.ServerURL != "" {
			src.TarballURLs = []string{ctx.Options.ServerURL + "/package/" + id.String() + "/" + entry.TreeHash.String()}
		}
		targets = append(targets, store.Target{UUID: id, Name: entry.Name, TreeHash: entry.TreeHash, Source: src})
	}
	if len(targets) == 0 {
		return nil
	}
	if ctx.Options.Offline {
		return depoterr.New(depoterr.KindNetwork, "offline mode forbids fetching missing dependencies")
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
	return firstErr
}
