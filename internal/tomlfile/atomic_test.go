package tomlfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicAndUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Project.toml")

	if err := WriteAtomic(path, []byte("name = \"Example\"\n")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "name = \"Example\"\n" {
		t.Fatalf("unexpected contents: %q", data)
	}

	if !UnchangedOnDisk(path, []byte("name = \"Example\"\n")) {
		t.Fatalf("expected UnchangedOnDisk to report true for identical contents")
	}
	if UnchangedOnDisk(path, []byte("name = \"Other\"\n")) {
		t.Fatalf("expected UnchangedOnDisk to report false for different contents")
	}
}
