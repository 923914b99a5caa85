package sandbox

import (
	"os"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/model"
)

// fakeRegistry is a minimal resolve.Registry fixture, mirroring the one
// internal/resolve tests itself against.
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

func TestNewSandboxSynthesizesAndResolves(t *testing.T) {
	reg := newFakeRegistry()
	target := uuid.New()
	reg.addPackage(target, "Target", "1.0.0", "1.1.0")
	testDep := uuid.New()
	reg.addPackage(testDep, "TestHelper", "2.0.0")

	req := Request{
		TargetName:   "Target",
		TargetUUID:   target,
		TestDeps:     map[string]uuid.UUID{"TestHelper": testDep},
		JuliaVersion: "1.10.0",
	}

	sb, err := New(req, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Close()

	if _, err := os.Stat(sb.Dir); err != nil {
		t.Fatalf("expected sandbox dir to exist: %v", err)
	}
	if len(sb.Result.Solutions) != 2 {
		t.Fatalf("expected both the target and its test dep resolved, got %+v", sb.Result.Solutions)
	}

	cmd := sb.Cmd("true")
	if cmd.Dir != sb.Dir {
		t.Fatalf("expected cmd.Dir to be the sandbox root")
	}

	dir := sb.Dir
	if err := sb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected sandbox directory to be removed after Close")
	}
}

func TestNewSandboxPicksHighestVersionWithoutParentManifest(t *testing.T) {
	reg := newFakeRegistry()
	target := uuid.New()
	reg.addPackage(target, "Target", "1.0.0", "1.1.0", "2.0.0")

	req := Request{
		TargetName:   "Target",
		TargetUUID:   target,
		JuliaVersion: "1.10.0",
	}
	sb, err := New(req, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Close()
	if len(sb.Result.Solutions) != 1 || sb.Result.Solutions[0].Version.String() != "2.0.0" {
		t.Fatalf("expected highest version absent a parent manifest, got %+v", sb.Result.Solutions)
	}
}
