package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
)

// Registry indexes one registry clone directory.
type Registry struct {
	baseDir string
	// index maps a package UUID to its shard path (e.g. "A/Example"),
	// loaded once from the registry's top-level Registry.toml.
	index map[uuid.UUID]indexEntry

	cache map[uuid.UUID]*PackageInfo
}

type indexEntry struct {
	Name string
	Path string
}

type rawRegistryIndex struct {
	Packages map[string]struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	} `toml:"packages"`
}

// Load reads baseDir's Registry.toml package index. Package records
// themselves are parsed lazily, on first Lookup.
func Load(baseDir string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "Registry.toml"))
	if err != nil {
		return nil, errors.Wrap(err, "reading Registry.toml")
	}
	var raw rawRegistryIndex
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(err, "parsing Registry.toml")
	}

	r := &Registry{
		baseDir: baseDir,
		index:   make(map[uuid.UUID]indexEntry, len(raw.Packages)),
		cache:   make(map[uuid.UUID]*PackageInfo),
	}
	for idStr, e := range raw.Packages {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing uuid %q in Registry.toml", idStr)
		}
		r.index[id] = indexEntry{Name: e.Name, Path: e.Path}
	}
	return r, nil
}

// Lookup returns the PackageInfo for uuid, or (nil, nil) if this registry
// doesn't carry it.
func (r *Registry) Lookup(id uuid.UUID) (*PackageInfo, error) {
	if cached, ok := r.cache[id]; ok {
		return cached, nil
	}
	entry, ok := r.index[id]
	if !ok {
		return nil, nil
	}

	dir := filepath.Join(r.baseDir, entry.Path)
	info, err := loadPackageInfo(dir, id, entry.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "loading package %s (%s)", entry.Name, id)
	}
	r.cache[id] = info
	return info, nil
}

// UUIDsForName returns every UUID this registry knows by the given name,
// supporting the "disambiguation" operation in spec.md §4.B.
func (r *Registry) UUIDsForName(name string) []uuid.UUID {
	var out []uuid.UUID
	for id, e := range r.index {
		if e.Name == name {
			out = append(out, id)
		}
	}
	return out
}

type rawPackageToml struct {
	Name   string `toml:"name"`
	UUID   string `toml:"uuid"`
	Repo   string `toml:"repo"`
	Subdir string `toml:"subdir"`
}

type rawVersionEntry struct {
	GitTreeSHA1 string `toml:"git-tree-sha1"`
	Yanked      bool   `toml:"yanked"`
}

func loadPackageInfo(dir string, id uuid.UUID, name string) (*PackageInfo, error) {
	pkgData, err := os.ReadFile(filepath.Join(dir, "Package.toml"))
	if err != nil {
		return nil, errors.Wrap(err, "reading Package.toml")
	}
	var pkg rawPackageToml
	if _, err := toml.Decode(string(pkgData), &pkg); err != nil {
		return nil, errors.Wrap(err, "parsing Package.toml")
	}

	info := &PackageInfo{
		UUID:     id,
		Name:     pkg.Name,
		RepoURL:  pkg.Repo,
		Subdir:   pkg.Subdir,
		Versions: make(map[string]VersionInfo),
	}
	if info.Name == "" {
		info.Name = name
	}

	versionsData, err := os.ReadFile(filepath.Join(dir, "Versions.toml"))
	if err != nil {
		return nil, errors.Wrap(err, "reading Versions.toml")
	}
	var rawVersions map[string]rawVersionEntry
	if _, err := toml.Decode(string(versionsData), &rawVersions); err != nil {
		return nil, errors.Wrap(err, "parsing Versions.toml")
	}
	for vs, rv := range rawVersions {
		v, err := semver.NewVersion(vs)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing version %q", vs)
		}
		th, err := model.ParseTreeHash(rv.GitTreeSHA1)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing tree hash for version %q", vs)
		}
		info.Versions[vs] = VersionInfo{
			Version:  v,
			TreeHash: th,
			Yanked:   rv.Yanked,
			Deps:     map[string]uuid.UUID{},
			Compat:   map[string]*semver.Constraints{},
		}
	}

	if err := loadDeps(dir, info); err != nil {
		return nil, err
	}
	if err := loadCompat(dir, info); err != nil {
		return nil, err
	}

	return info, nil
}

// loadDeps parses Deps.toml: version-range-keyed tables of name -> uuid.
func loadDeps(dir string, info *PackageInfo) error {
	data, err := os.ReadFile(filepath.Join(dir, "Deps.toml"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading Deps.toml")
	}
	var raw map[string]map[string]string
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return errors.Wrap(err, "parsing Deps.toml")
	}
	for rangeStr, deps := range raw {
		constraint, err := parseVersionRange(rangeStr)
		if err != nil {
			return errors.Wrapf(err, "parsing Deps.toml range %q", rangeStr)
		}
		for vs, vi := range info.Versions {
			if !constraint.Check(vi.Version) {
				continue
			}
			for depName, depIDStr := range deps {
				depID, err := uuid.Parse(depIDStr)
				if err != nil {
					return errors.Wrapf(err, "parsing dep uuid %q for %s", depIDStr, depName)
				}
				vi.Deps[depName] = depID
			}
			info.Versions[vs] = vi
		}
	}
	return nil
}

// loadCompat parses Compat.toml: version-range-keyed tables of name ->
// compat constraint text.
func loadCompat(dir string, info *PackageInfo) error {
	data, err := os.ReadFile(filepath.Join(dir, "Compat.toml"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading Compat.toml")
	}
	var raw map[string]map[string]string
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return errors.Wrap(err, "parsing Compat.toml")
	}
	for rangeStr, compats := range raw {
		constraint, err := parseVersionRange(rangeStr)
		if err != nil {
			return errors.Wrapf(err, "parsing Compat.toml range %q", rangeStr)
		}
		for vs, vi := range info.Versions {
			if !constraint.Check(vi.Version) {
				continue
			}
			for depName, exprText := range compats {
				depConstraint, err := semver.NewConstraint(exprText)
				if err != nil {
					return errors.Wrapf(err, "parsing compat %q for %s", exprText, depName)
				}
				vi.Compat[depName] = depConstraint
			}
			info.Versions[vs] = vi
		}
	}
	return nil
}

// parseVersionRange parses a Deps.toml/Compat.toml section header such as
// "1.0" (a version prefix, open-ended) or "1.0-1.5" (a hyphenated closed
// range). Julia's registry format does not use standard semver-range
// syntax here, so — matching the same simplification the reference
// registry reader in this corpus documents for the identical format — a
// bare prefix is treated as "this minor/major line and everything until the
// next", and a hyphenated pair is treated as its two endpoints inclusive.
func parseVersionRange(rangeStr string) (*semver.Constraints, error) {
	rangeStr = strings.TrimSpace(rangeStr)
	parts := strings.SplitN(rangeStr, "-", 2)
	lo := padVersion(strings.TrimSpace(parts[0]))
	if len(parts) == 1 {
		return semver.NewConstraint("^" + lo)
	}
	hi := padVersion(strings.TrimSpace(parts[1]))
	return semver.NewConstraint(">= " + lo + ", <= " + hi)
}

// padVersion extends a two-component "X.Y" version to "X.Y.0" so it parses
// as a valid semver constraint endpoint.
func padVersion(v string) string {
	if strings.Count(v, ".") == 1 {
		return v + ".0"
	}
	return v
}
