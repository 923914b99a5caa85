package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

const (
	exampleUUID = "7876af07-990d-54b4-ab0e-23690620f79a"
	helperUUID  = "05823f6a-7903-4163-b7b8-4e6fb81033ad"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// buildTestRegistry lays out a minimal two-package registry clone under dir:
// Example (depends on Helper) and Helper.
func buildTestRegistry(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "Registry.toml"), `
[packages]
[packages."`+exampleUUID+`"]
name = "Example"
path = "E/Example"

[packages."`+helperUUID+`"]
name = "Helper"
path = "H/Helper"
`)

	exDir := filepath.Join(dir, "E", "Example")
	writeFile(t, filepath.Join(exDir, "Package.toml"), `
name = "Example"
uuid = "`+exampleUUID+`"
repo = "https://example.test/Example.git"
`)
	writeFile(t, filepath.Join(exDir, "Versions.toml"), `
["1.0.0"]
git-tree-sha1 = "000000000000000000000000000000000000000a"

["1.1.0"]
git-tree-sha1 = "000000000000000000000000000000000000000b"
yanked = true
`)
	writeFile(t, filepath.Join(exDir, "Deps.toml"), `
["1.0"]
Helper = "`+helperUUID+`"
`)
	writeFile(t, filepath.Join(exDir, "Compat.toml"), `
["1.0"]
Helper = "^1.0.0"
`)

	hDir := filepath.Join(dir, "H", "Helper")
	writeFile(t, filepath.Join(hDir, "Package.toml"), `
name = "Helper"
uuid = "`+helperUUID+`"
repo = "https://example.test/Helper.git"
`)
	writeFile(t, filepath.Join(hDir, "Versions.toml"), `
["1.0.0"]
git-tree-sha1 = "000000000000000000000000000000000000000c"
`)
}

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	buildTestRegistry(t, dir)

	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	id := uuid.MustParse(exampleUUID)
	info, err := reg.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info == nil {
		t.Fatalf("expected package info, got nil")
	}
	if info.Name != "Example" {
		t.Fatalf("expected name Example, got %q", info.Name)
	}
	if len(info.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(info.Versions))
	}
	if !info.Versions["1.1.0"].Yanked {
		t.Fatalf("expected 1.1.0 to be yanked")
	}
	if info.Versions["1.0.0"].Yanked {
		t.Fatalf("expected 1.0.0 to not be yanked")
	}

	helperID := uuid.MustParse(helperUUID)
	if got := info.Versions["1.0.0"].Deps["Helper"]; got != helperID {
		t.Fatalf("expected Helper dep uuid %s, got %s", helperID, got)
	}
	if _, ok := info.Versions["1.0.0"].Compat["Helper"]; !ok {
		t.Fatalf("expected Helper compat entry on 1.0.0")
	}
}

func TestSortedVersions(t *testing.T) {
	dir := t.TempDir()
	buildTestRegistry(t, dir)
	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := reg.Lookup(uuid.MustParse(exampleUUID))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	versions := info.SortedVersions()
	if len(versions) != 2 || versions[0].String() != "1.0.0" || versions[1].String() != "1.1.0" {
		t.Fatalf("unexpected sorted versions: %v", versions)
	}
}

func TestUUIDsForName(t *testing.T) {
	dir := t.TempDir()
	buildTestRegistry(t, dir)
	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ids := reg.UUIDsForName("Helper")
	if len(ids) != 1 || ids[0] != uuid.MustParse(helperUUID) {
		t.Fatalf("unexpected UUIDsForName result: %v", ids)
	}
}

func TestLookupUnknownUUIDReturnsNil(t *testing.T) {
	dir := t.TempDir()
	buildTestRegistry(t, dir)
	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := reg.Lookup(uuid.New())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil for unknown uuid, got %+v", info)
	}
}

func TestViewMergesMultipleRegistries(t *testing.T) {
	dirA := t.TempDir()
	buildTestRegistry(t, dirA)
	dirB := t.TempDir()
	buildTestRegistry(t, dirB)

	regA, err := Load(dirA)
	if err != nil {
		t.Fatalf("Load A: %v", err)
	}
	regB, err := Load(dirB)
	if err != nil {
		t.Fatalf("Load B: %v", err)
	}

	view := NewView(regA, regB)
	info, err := view.Lookup(uuid.MustParse(exampleUUID))
	if err != nil {
		t.Fatalf("View.Lookup: %v", err)
	}
	if info == nil || info.Name != "Example" {
		t.Fatalf("expected merged Example info, got %+v", info)
	}
}

func TestViewFatalOnDisagreement(t *testing.T) {
	dirA := t.TempDir()
	buildTestRegistry(t, dirA)
	dirB := t.TempDir()
	buildTestRegistry(t, dirB)
	// Corrupt the second clone's tree hash for the same version to force
	// a disagreement the view must surface as an error, not silently
	// resolve by preferring one registry.
	exDirB := filepath.Join(dirB, "E", "Example")
	writeFile(t, filepath.Join(exDirB, "Versions.toml"), `
["1.0.0"]
git-tree-sha1 = "0000000000000000000000000000000000000fff"
`)

	regA, err := Load(dirA)
	if err != nil {
		t.Fatalf("Load A: %v", err)
	}
	regB, err := Load(dirB)
	if err != nil {
		t.Fatalf("Load B: %v", err)
	}

	view := NewView(regA, regB)
	if _, err := view.Lookup(uuid.MustParse(exampleUUID)); err == nil {
		t.Fatalf("expected fatal error on registry disagreement")
	}
}

func TestIsYankedAndCompatInfo(t *testing.T) {
	dir := t.TempDir()
	buildTestRegistry(t, dir)
	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := reg.Lookup(uuid.MustParse(exampleUUID))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !IsYanked(info, "1.1.0") {
		t.Fatalf("expected 1.1.0 yanked")
	}
	if IsYanked(info, "1.0.0") {
		t.Fatalf("expected 1.0.0 not yanked")
	}
	compat := CompatInfo(info, "1.0.0")
	if _, ok := compat["Helper"]; !ok {
		t.Fatalf("expected Helper in compat info")
	}
}
