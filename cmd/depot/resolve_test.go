package main

import (
	"os"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/registry"
	"github.com/depotpm/depot/internal/resolve"
	"github.com/depotpm/depot/internal/store"
)

// fakeRegistry is a minimal resolve.Registry fixture, mirroring the one
// internal/resolve and internal/sandbox test against.
type fakeRegistry struct {
	names    map[uuid.UUID]string
	versions map[uuid.UUID][]*semver.Version
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{names: map[uuid.UUID]string{}, versions: map[uuid.UUID][]*semver.Version{}}
}

func (f *fakeRegistry) addPackage(id uuid.UUID, name string, versions ...string) {
	f.names[id] = name
	for _, vs := range versions {
		f.versions[id] = append(f.versions[id], semver.MustParse(vs))
	}
}

func (f *fakeRegistry) VersionsOf(id uuid.UUID) ([]*semver.Version, error) {
	out := append([]*semver.Version(nil), f.versions[id]...)
	semver.Sort(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (f *fakeRegistry) DepsOf(id uuid.UUID, v *semver.Version) (map[string]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeRegistry) CompatOf(id uuid.UUID, v *semver.Version) (map[string]*semver.Constraints, error) {
	return nil, nil
}

func (f *fakeRegistry) TreeHashOf(id uuid.UUID, v *semver.Version) (model.TreeHash, error) {
	return model.TreeHash{}, nil
}

func (f *fakeRegistry) NameOf(id uuid.UUID) (string, error) {
	return f.names[id], nil
}

func newTestCache(t *testing.T) *env.Cache {
	t.Helper()
	c, err := env.Activate(nil, nil, "", env.ActivateOptions{Temp: true})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(c.AbsRoot) })
	return c
}

func TestBuildRequestInjectsExactConstraintForPinnedDep(t *testing.T) {
	c := newTestCache(t)
	id := uuid.New()
	if err := c.AddDep("Pinned", id); err != nil {
		t.Fatalf("AddDep: %v", err)
	}
	c.Manifest = env.NewManifest("1.10.0")
	c.Manifest.Deps[id] = env.ManifestEntry{Name: "Pinned", UUID: id, Version: "1.2.3", Pinned: true}

	req := buildRequest(c, resolve.PreserveSemver, nil)

	constraint, ok := req.RootCompat["Pinned"]
	if !ok {
		t.Fatalf("expected a synthesized compat constraint for the pinned dep")
	}
	if !constraint.Check(semver.MustParse("1.2.3")) {
		t.Fatalf("expected pinned constraint to accept its own version")
	}
	if constraint.Check(semver.MustParse("1.2.4")) {
		t.Fatalf("expected pinned constraint to reject any other version")
	}
}

func TestTieredSolveResolvesAgainstAPriorManifestEntryGoneFromTheRegistry(t *testing.T) {
	reg := newFakeRegistry()
	a := uuid.New()
	reg.addPackage(a, "A", "1.0.0")

	c := newTestCache(t)
	if err := c.AddDep("A", a); err != nil {
		t.Fatalf("AddDep: %v", err)
	}
	// The manifest recorded a version the registry no longer carries;
	// preferredVersion only biases candidate order, so the solver still
	// settles on the one version the registry actually offers.
	c.Manifest = env.NewManifest("1.10.0")
	c.Manifest.Deps[a] = env.ManifestEntry{Name: "A", UUID: a, Version: "9.9.9"}

	result, err := tieredSolve(c, reg, resolve.PreserveAllInstalled, true, nil)
	if err != nil {
		t.Fatalf("tieredSolve: %v", err)
	}
	if len(result.Solutions) != 1 || result.Solutions[0].Version.String() != "1.0.0" {
		t.Fatalf("expected A to resolve at 1.0.0, got %+v", result.Solutions)
	}
}

func TestApplyAndInstallForbidsFetchingWhenOffline(t *testing.T) {
	c := newTestCache(t)
	id := uuid.New()

	ctx := &Ctx{
		Depot: store.Open(t.TempDir()),
		View:  registry.NewView(),
	}
	ctx.Options.Offline = true
	if err := ctx.Depot.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	result := &resolve.Result{Solutions: []resolve.Solution{
		{UUID: id, Name: "A", Version: semver.MustParse("1.0.0")},
	}}

	err := applyAndInstall(ctx, c, result)
	if !depoterr.Is(err, depoterr.KindNetwork) {
		t.Fatalf("expected a KindNetwork error in offline mode, got %v", err)
	}
	if _, err := os.Stat(c.ManifestPath); !os.IsNotExist(err) {
		t.Fatalf("expected no Manifest.toml to be written on a failed install, stat err: %v", err)
	}
	if _, err := os.Stat(c.ProjectPath); !os.IsNotExist(err) {
		t.Fatalf("expected no Project.toml to be written on a failed install, stat err: %v", err)
	}
}

func TestApplyAndInstallCarriesForwardPinnedFlag(t *testing.T) {
	c := newTestCache(t)
	id := uuid.New()
	c.Manifest = env.NewManifest("1.10.0")
	c.Manifest.Deps[id] = env.ManifestEntry{Name: "A", UUID: id, Version: "1.0.0", Pinned: true}

	ctx := &Ctx{
		Depot: store.Open(t.TempDir()),
		View:  registry.NewView(),
	}
	if err := ctx.Depot.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	// A repo-tracked solution needs no tree install, so this exercises the
	// write-after-install path without a fake tarball server: len(targets)
	// stays zero and applyAndInstall falls straight through to c.Write().
	result := &resolve.Result{Solutions: []resolve.Solution{
		{UUID: id, Name: "A", Repo: model.RepoInfo{Source: "https://example.com/A.git", Rev: "main"}},
	}}

	if err := applyAndInstall(ctx, c, result); err != nil {
		t.Fatalf("applyAndInstall: %v", err)
	}
	if !c.Manifest.Deps[id].Pinned {
		t.Fatalf("expected the pinned flag to survive a re-resolve into a fresh manifest")
	}
}
