package registry

import (
	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
)

// The methods below give *View the exact shape internal/resolve.Registry
// expects, without resolve importing this package (resolve.Registry's own
// doc comment explains why: it keeps the solver testable against fakes).
// Structural typing means *View satisfies that interface automatically.

func (v *View) VersionsOf(id uuid.UUID) ([]*semver.Version, error) {
	info, err := v.Lookup(id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.Errorf("package %s is not registered", id)
	}
	var out []*semver.Version
	for ver, vi := range info.Versions {
		if vi.Yanked {
			continue
		}
		out = append(out, semver.MustParse(ver))
	}
	semver.Sort(out)
	// highest first, as resolve.Registry documents
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (v *View) DepsOf(id uuid.UUID, ver *semver.Version) (map[string]uuid.UUID, error) {
	info, err := v.Lookup(id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.Errorf("package %s is not registered", id)
	}
	vi, ok := info.Versions[ver.String()]
	if !ok {
		return nil, errors.Errorf("package %s has no version %s", id, ver)
	}
	return vi.Deps, nil
}

func (v *View) CompatOf(id uuid.UUID, ver *semver.Version) (map[string]*semver.Constraints, error) {
	info, err := v.Lookup(id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.Errorf("package %s is not registered", id)
	}
	vi, ok := info.Versions[ver.String()]
	if !ok {
		return nil, errors.Errorf("package %s has no version %s", id, ver)
	}
	return vi.Compat, nil
}

func (v *View) TreeHashOf(id uuid.UUID, ver *semver.Version) (model.TreeHash, error) {
	info, err := v.Lookup(id)
	if err != nil {
		return model.TreeHash{}, err
	}
	if info == nil {
		return model.TreeHash{}, errors.Errorf("package %s is not registered", id)
	}
	vi, ok := info.Versions[ver.String()]
	if !ok {
		return model.TreeHash{}, errors.Errorf("package %s has no version %s", id, ver)
	}
	return vi.TreeHash, nil
}

func (v *View) NameOf(id uuid.UUID) (string, error) {
	info, err := v.Lookup(id)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", errors.Errorf("package %s is not registered", id)
	}
	return info.Name, nil
}
