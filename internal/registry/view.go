package registry

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/depoterr"
)

// View is the union of one or more registry clones, as consulted by the
// resolver (component C). Per spec.md §9's Open Question #1 decision,
// two registries disagreeing about a UUID's record (different name, repo,
// or a shared version's tree hash) is a fatal RegistryError — depot never
// silently prefers one registry's record over another's.
type View struct {
	registries []*Registry
}

// NewView unions regs into a single queryable index.
func NewView(regs ...*Registry) *View {
	return &View{registries: regs}
}

// Lookup returns the merged PackageInfo for id, or (nil, nil) if no
// registry in the view carries it.
func (v *View) Lookup(id uuid.UUID) (*PackageInfo, error) {
	var merged *PackageInfo
	for _, reg := range v.registries {
		info, err := reg.Lookup(id)
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}
		if merged == nil {
			merged = copyPackageInfo(info)
			continue
		}
		if err := mergeInto(merged, info); err != nil {
			return nil, depoterr.Wrap(depoterr.KindRegistry, err, "registries disagree")
		}
	}
	return merged, nil
}

// UUIDsForName returns the set of UUIDs any registry in the view knows by
// name, deduplicated.
func (v *View) UUIDsForName(name string) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, reg := range v.registries {
		for _, id := range reg.UUIDsForName(name) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// CompatInfo returns the compat constraint map declared for a specific
// version of info's package (spec.md §4.B's compat_info operation).
func CompatInfo(info *PackageInfo, version string) map[string]interface{} {
	vi, ok := info.Versions[version]
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(vi.Compat))
	for name, c := range vi.Compat {
		out[name] = c
	}
	return out
}

// IsYanked reports whether version is marked yanked for info. Yanked
// versions are excluded from fresh resolver candidate sets but remain
// valid to read back from an existing manifest entry (spec.md §3).
func IsYanked(info *PackageInfo, version string) bool {
	vi, ok := info.Versions[version]
	return ok && vi.Yanked
}

func copyPackageInfo(info *PackageInfo) *PackageInfo {
	cp := *info
	cp.Versions = make(map[string]VersionInfo, len(info.Versions))
	for k, v := range info.Versions {
		cp.Versions[k] = v
	}
	return &cp
}

// mergeInto folds other into merged, returning an error on any disagreement
// about the package's identity or a shared version's tree hash.
func mergeInto(merged, other *PackageInfo) error {
	if merged.Name != other.Name {
		return errors.Errorf("package %s: registries disagree on name (%q vs %q)", merged.UUID, merged.Name, other.Name)
	}
	if merged.RepoURL != "" && other.RepoURL != "" && merged.RepoURL != other.RepoURL {
		return errors.Errorf("package %s: registries disagree on repo url (%q vs %q)", merged.UUID, merged.RepoURL, other.RepoURL)
	}
	for vs, otherVI := range other.Versions {
		existing, ok := merged.Versions[vs]
		if !ok {
			merged.Versions[vs] = otherVI
			continue
		}
		if existing.TreeHash != otherVI.TreeHash {
			return errors.Errorf("package %s version %s: registries disagree on tree hash (%s vs %s)", merged.UUID, vs, existing.TreeHash, otherVI.TreeHash)
		}
		// Union deps/compat from both records; identical versions should
		// declare identical dependency data, but we don't require it here
		// since one registry may simply carry a superset of metadata.
		for name, id := range otherVI.Deps {
			existing.Deps[name] = id
		}
		for name, c := range otherVI.Compat {
			existing.Compat[name] = c
		}
		existing.Yanked = existing.Yanked || otherVI.Yanked
		merged.Versions[vs] = existing
	}
	return nil
}
