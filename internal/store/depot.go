package store

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
)

// Depot is one on-disk depot root: packages/, environments/, registries/,
// artifacts/, logs/ — the standard layout spec.md §6 names.
type Depot struct {
	Root string
}

func Open(root string) *Depot { return &Depot{Root: root} }

func (d *Depot) PackagesDir() string    { return filepath.Join(d.Root, "packages") }
func (d *Depot) ArtifactsDir() string   { return filepath.Join(d.Root, "artifacts") }
func (d *Depot) EnvironmentsDir() string { return filepath.Join(d.Root, "environments") }
func (d *Depot) RegistriesDir() string  { return filepath.Join(d.Root, "registries") }
func (d *Depot) LogsDir() string        { return filepath.Join(d.Root, "logs") }

// PackagePath returns the install directory for a given slug, sharded by
// package name the way registries shard by first letter, so a single
// packages/ directory doesn't accumulate tens of thousands of siblings.
func (d *Depot) PackagePath(s Slug) string {
	return filepath.Join(d.PackagesDir(), s.Name, s.String())
}

func (d *Depot) LegacyPackagePath(s LegacySlug) string {
	return filepath.Join(d.PackagesDir(), s.Name, s.String())
}

// IsInstalled reports whether id@treeHash is already present on disk,
// checking the current slug form first and falling back to the legacy
// form for environments installed by an older depot version.
func (d *Depot) IsInstalled(id uuid.UUID, name string, treeHash model.TreeHash) (string, bool) {
	p := d.PackagePath(Slug{Name: name, UUID: id, TreeHash: treeHash})
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return p, true
	}
	lp := d.LegacyPackagePath(LegacySlug{Name: name, TreeHash: treeHash})
	if fi, err := os.Stat(lp); err == nil && fi.IsDir() {
		return lp, true
	}
	return "", false
}

// EnsureLayout creates the depot's standard subdirectories if absent.
func (d *Depot) EnsureLayout() error {
	for _, dir := range []string{d.PackagesDir(), d.ArtifactsDir(), d.EnvironmentsDir(), d.RegistriesDir(), d.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating depot directory %s", dir)
		}
	}
	return nil
}
