package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/config"
	"github.com/depotpm/depot/internal/depotlog"
	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/registry"
	"github.com/depotpm/depot/internal/store"
)

// Ctx is the process-wide state every subcommand operates against,
// threaded explicitly rather than held in package-level globals, per
// spec.md §9's "process-wide state" design note. It is the generalization
// of the teacher's own *dep.Ctx (cmd/dep/main.go) from a single GOPATH
// workspace to depot's {options, depot paths, active environment,
// registry view} shape.
type Ctx struct {
	Options config.Options

	// DepotPaths is the search path of on-disk depots, first entry
	// writable. DEPOT_PATH (a filepath.ListSeparator-joined list) overrides
	// the single-entry default of $HOME/.depot.
	DepotPaths []string

	Depot *store.Depot
	View  *registry.View
	Log   *depotlog.Logger

	Active *env.Cache
}

// newCtx builds a Ctx from the environment: config.Options, the depot
// search path, and every registry clone found under the first depot's
// registries directory, unioned into one View.
func newCtx() (*Ctx, error) {
	opts, err := config.FromEnviron()
	if err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}

	paths, err := depotPaths()
	if err != nil {
		return nil, err
	}

	depot := store.Open(paths[0])
	if err := depot.EnsureLayout(); err != nil {
		return nil, errors.Wrap(err, "preparing depot layout")
	}

	view, err := loadRegistries(depot)
	if err != nil {
		return nil, err
	}

	return &Ctx{
		Options:    opts,
		DepotPaths: paths,
		Depot:      depot,
		View:       view,
		Log:        depotlog.New(os.Stderr, opts.Verbose),
	}, nil
}

func depotPaths() ([]string, error) {
	if v := os.Getenv("DEPOT_PATH"); v != "" {
		return filepath.SplitList(v), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "locating home directory")
	}
	return []string{filepath.Join(home, ".depot")}, nil
}

// loadRegistries unions every registry clone directory under depot's
// registries dir, mirroring the teacher's source_manager.go: each clone
// contributes its own *registry.Registry, and View resolves lookups across
// all of them (component B's "union" requirement).
func loadRegistries(depot *store.Depot) (*registry.View, error) {
	entries, err := os.ReadDir(depot.RegistriesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return registry.NewView(), nil
		}
		return nil, errors.Wrap(err, "listing registries directory")
	}

	var clones []*registry.Registry
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(depot.RegistriesDir(), e.Name())
		reg, err := registry.Load(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "loading registry %s", e.Name())
		}
		clones = append(clones, reg)
	}
	return registry.NewView(clones...), nil
}

// requireActive loads the active project from the working directory if one
// isn't already attached to c, mirroring the teacher's per-command
// ctx.loadProject.
func (c *Ctx) requireActive() (*env.Cache, error) {
	if c.Active != nil {
		return c.Active, nil
	}
	cache, err := env.Load("")
	if err != nil {
		return nil, err
	}
	c.Active = cache
	return cache, nil
}
