package store

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func buildTarballServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: "root-1.0.0/" + name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	data := buf.Bytes()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
}

func TestInstallFromTarballIsContentAddressedAndIdempotent(t *testing.T) {
	srv := buildTarballServer(t, map[string]string{"README.md": "hello\n"})
	defer srv.Close()

	depotDir := t.TempDir()
	depot := Open(depotDir)
	if err := depot.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	// Determine the expected tree hash by extracting once into a scratch
	// dir and hashing it, mirroring what Install will compute internally.
	scratch := t.TempDir()
	if err := downloadAndExtractTarball(context.Background(), srv.URL, scratch); err != nil {
		t.Fatalf("extract: %v", err)
	}
	wantHash, err := ComputeTreeHash(scratch)
	if err != nil {
		t.Fatalf("ComputeTreeHash: %v", err)
	}

	target := Target{
		UUID:     uuid.New(),
		Name:     "Example",
		TreeHash: wantHash,
		Source:   Source{TarballURLs: []string{srv.URL}},
	}

	path, err := Install(context.Background(), depot, target)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, "README.md")); err != nil {
		t.Fatalf("expected README.md installed: %v", err)
	}

	// Installed trees are read-only.
	fi, err := os.Stat(filepath.Join(path, "README.md"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm()&0o222 != 0 {
		t.Fatalf("expected installed file to be read-only, got mode %v", fi.Mode())
	}

	// A second install of the same target is a no-op that returns the
	// same path without re-fetching (content-addressed idempotency).
	path2, err := Install(context.Background(), depot, target)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if path2 != path {
		t.Fatalf("expected idempotent install to return same path, got %s vs %s", path2, path)
	}
}

func TestInstallRejectsTreeHashMismatch(t *testing.T) {
	srv := buildTarballServer(t, map[string]string{"a.txt": "one"})
	defer srv.Close()

	depot := Open(t.TempDir())
	if err := depot.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	target := Target{
		UUID:     uuid.New(),
		Name:     "Bad",
		TreeHash: [20]byte{0xde, 0xad},
		Source:   Source{TarballURLs: []string{srv.URL}},
	}
	if _, err := Install(context.Background(), depot, target); err == nil {
		t.Fatalf("expected tree hash mismatch error")
	}
}

func TestInstallIgnoreHashMismatchDowngradesToWarningAndMovesTree(t *testing.T) {
	srv := buildTarballServer(t, map[string]string{"a.txt": "one"})
	defer srv.Close()

	depot := Open(t.TempDir())
	if err := depot.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	target := Target{
		UUID:     uuid.New(),
		Name:     "Bad",
		TreeHash: [20]byte{0xde, 0xad},
		Source:   Source{TarballURLs: []string{srv.URL}},
	}
	path, warning, err := installWithWarning(context.Background(), depot, target, InstallOptions{IgnoreHashMismatch: true})
	if err != nil {
		t.Fatalf("installWithWarning: %v", err)
	}
	if warning == nil {
		t.Fatalf("expected a non-nil warning for a mismatched tree hash")
	}
	if _, err := os.Stat(filepath.Join(path, "a.txt")); err != nil {
		t.Fatalf("expected tree to still be moved into place: %v", err)
	}
}

func TestSlugString(t *testing.T) {
	id := uuid.MustParse("7876af07-990d-54b4-ab0e-23690620f79a")
	s := Slug{Name: "Example", UUID: id, TreeHash: [20]byte{0xab, 0xcd}}
	if got := s.String(); got == "" || got[:8] != "Example-" {
		t.Fatalf("unexpected slug string: %q", got)
	}
}

func TestInstallAllRespectsContextCancellation(t *testing.T) {
	depot := Open(t.TempDir())
	if err := depot.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	targets := []Target{{UUID: uuid.New(), Name: "A"}, {UUID: uuid.New(), Name: "B"}}
	results := InstallAll(ctx, depot, targets, 2)
	for _, r := range results {
		if r.Err == nil {
			t.Fatalf("expected cancellation error for %s", r.Target.Name)
		}
	}
}
