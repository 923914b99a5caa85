package tomlfile

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteAtomic writes data to path via a sibling .tmp file, fsyncs it, and
// renames it into place, per spec.md §5's durability requirement for usage
// logs and §4.A's requirement that env writes never leave a half-written
// document on disk.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing temp file for %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "fsyncing temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "renaming temp file into place for %s", path)
	}
	return nil
}

// UnchangedOnDisk reports whether path's current contents equal data,
// letting callers of Write skip rewriting an unchanged document.
func UnchangedOnDisk(path string, data []byte) bool {
	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.Equal(existing, data)
}
