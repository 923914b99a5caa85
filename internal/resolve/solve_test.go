package resolve

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/model"
)

// fakeRegistry implements Registry over an in-memory fixture, letting
// resolver tests run without a real registry clone on disk.
type fakeRegistry struct {
	names    map[uuid.UUID]string
	versions map[uuid.UUID][]*semver.Version
	deps     map[uuid.UUID]map[string]map[string]uuid.UUID // id -> version string -> name -> dep uuid
	compat   map[uuid.UUID]map[string]map[string]string    // id -> version string -> name -> constraint text
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		names:    make(map[uuid.UUID]string),
		versions: make(map[uuid.UUID][]*semver.Version),
		deps:     make(map[uuid.UUID]map[string]map[string]uuid.UUID),
		compat:   make(map[uuid.UUID]map[string]map[string]string),
	}
}

func (f *fakeRegistry) addPackage(id uuid.UUID, name string, versions ...string) {
	f.names[id] = name
	for _, vs := range versions {
		f.versions[id] = append(f.versions[id], semver.MustParse(vs))
	}
}

func (f *fakeRegistry) addDep(id uuid.UUID, version, depName string, depID uuid.UUID, compatExpr string) {
	if f.deps[id] == nil {
		f.deps[id] = make(map[string]map[string]uuid.UUID)
		f.compat[id] = make(map[string]map[string]string)
	}
	if f.deps[id][version] == nil {
		f.deps[id][version] = make(map[string]uuid.UUID)
		f.compat[id][version] = make(map[string]string)
	}
	f.deps[id][version][depName] = depID
	f.compat[id][version][depName] = compatExpr
}

func (f *fakeRegistry) VersionsOf(id uuid.UUID) ([]*semver.Version, error) {
	out := append([]*semver.Version(nil), f.versions[id]...)
	semver.Sort(out)
	// highest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (f *fakeRegistry) DepsOf(id uuid.UUID, v *semver.Version) (map[string]uuid.UUID, error) {
	return f.deps[id][v.String()], nil
}

func (f *fakeRegistry) CompatOf(id uuid.UUID, v *semver.Version) (map[string]*semver.Constraints, error) {
	out := make(map[string]*semver.Constraints)
	for name, text := range f.compat[id][v.String()] {
		c, err := semver.NewConstraint(text)
		if err != nil {
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}

func (f *fakeRegistry) TreeHashOf(id uuid.UUID, v *semver.Version) (model.TreeHash, error) {
	return model.TreeHash{}, nil
}

func (f *fakeRegistry) NameOf(id uuid.UUID) (string, error) {
	return f.names[id], nil
}

func TestSolvePicksHighestSatisfyingVersion(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "1.0.0", "1.1.0", "1.2.0")

	req := Request{RootDeps: map[string]uuid.UUID{"A": a}}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	if len(result.Solutions) != 1 || result.Solutions[0].Version.String() != "1.2.0" {
		t.Fatalf("expected A@1.2.0, got %+v", result.Solutions)
	}
}

func TestSolveTransitiveDependency(t *testing.T) {
	reg := newFakeRegistry()
	a, b := uuid.New(), uuid.New()
	reg.addPackage(a, "A", "1.0.0")
	reg.addPackage(b, "B", "1.0.0", "2.0.0")
	reg.addDep(a, "1.0.0", "B", b, "^1.0.0")

	req := Request{RootDeps: map[string]uuid.UUID{"A": a}}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	if len(result.Solutions) != 2 {
		t.Fatalf("expected 2 solutions, got %d: %+v", len(result.Solutions), result.Solutions)
	}
	for _, s := range result.Solutions {
		if s.UUID == b && s.Version.String() != "1.0.0" {
			t.Fatalf("expected B@1.0.0 to satisfy A's ^1.0.0 requirement, got %s", s.Version)
		}
	}
}

func TestSolveReportsConflict(t *testing.T) {
	reg := newFakeRegistry()
	b := uuid.New()
	reg.addPackage(b, "B", "1.0.0", "2.0.0")

	req := Request{
		RootDeps: map[string]uuid.UUID{"B": b},
		RootCompat: map[string]*semver.Constraints{
			"B": mustConstraint(t, "^3.0.0"),
		},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result on conflict, got %+v", result)
	}
	if conflict == nil {
		t.Fatalf("expected a conflict report")
	}
}

func TestSolveAllInstalledFiltersToStoreMembership(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "1.0.0", "1.1.0")

	req := Request{
		RootDeps: map[string]uuid.UUID{"A": a},
		Level:    PreserveAllInstalled,
		InStore: func(id uuid.UUID, name string, treeHash model.TreeHash) bool {
			return id == a && name == "A" // every known treeHash counts as "present"
		},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	if len(result.Solutions) != 1 || result.Solutions[0].Version.String() != "1.1.0" {
		t.Fatalf("expected A@1.1.0 (highest, all present in store), got %+v", result.Solutions)
	}
}

func TestSolveAllInstalledConflictsWhenNothingInStoreSatisfies(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "1.0.0", "1.1.0")

	req := Request{
		RootDeps: map[string]uuid.UUID{"A": a},
		Level:    PreserveAllInstalled,
		InStore: func(id uuid.UUID, name string, treeHash model.TreeHash) bool {
			return false
		},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	if conflict == nil {
		t.Fatalf("expected a conflict when no registry version is present in the store")
	}
}

func TestSolveDirectPinsToInstalledVersionExactly(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "1.0.0", "1.1.0", "1.2.0")

	req := Request{
		RootDeps:  map[string]uuid.UUID{"A": a},
		Level:     PreserveDirect,
		Installed: map[uuid.UUID]*semver.Version{a: semver.MustParse("1.0.0")},
		Direct:    map[uuid.UUID]bool{a: true},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	if len(result.Solutions) != 1 || result.Solutions[0].Version.String() != "1.0.0" {
		t.Fatalf("expected A to stay pinned at 1.0.0, got %+v", result.Solutions)
	}
}

func TestSolveDirectConflictsWhenInstalledVersionIsGone(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "1.0.0")

	req := Request{
		RootDeps:  map[string]uuid.UUID{"A": a},
		Level:     PreserveDirect,
		Installed: map[uuid.UUID]*semver.Version{a: semver.MustParse("9.9.9")},
		Direct:    map[uuid.UUID]bool{a: true},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	if conflict == nil {
		t.Fatalf("expected a conflict: the installed version no longer exists and DIRECT forbids moving")
	}
}

func TestSolveSemverMovesWithinEpochButNotAcrossPre1Minor(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "0.3.0", "0.3.5", "0.4.0")

	req := Request{
		RootDeps:  map[string]uuid.UUID{"A": a},
		Level:     PreserveSemver,
		Installed: map[uuid.UUID]*semver.Version{a: semver.MustParse("0.3.0")},
		Direct:    map[uuid.UUID]bool{a: true},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if conflict != nil {
		t.Fatalf("unexpected conflict: %v", conflict)
	}
	// 0.4.0 is excluded: CompatibleWithin treats a pre-1.0 minor bump as a
	// breaking change, same as a major bump at or above 1.0.0.
	if len(result.Solutions) != 1 || result.Solutions[0].Version.String() != "0.3.5" {
		t.Fatalf("expected A@0.3.5 (highest within the 0.3.x epoch), got %+v", result.Solutions)
	}
}

func TestSolveSemverConflictsAcrossPre1Minor(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "0.4.0")

	req := Request{
		RootDeps:  map[string]uuid.UUID{"A": a},
		Level:     PreserveSemver,
		Installed: map[uuid.UUID]*semver.Version{a: semver.MustParse("0.3.0")},
		Direct:    map[uuid.UUID]bool{a: true},
	}
	result, conflict, err := Solve(req, reg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	if conflict == nil {
		t.Fatalf("expected a conflict: 0.4.0 is a different pre-1.0 epoch than the installed 0.3.0")
	}
}

func mustConstraint(t *testing.T, s string) *semver.Constraints {
	t.Helper()
	c, err := semver.NewConstraint(s)
	if err != nil {
		t.Fatalf("NewConstraint(%q): %v", s, err)
	}
	return c
}
