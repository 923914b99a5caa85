package pidlock

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTryAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "packages")

	l := New(target, time.Minute)
	ok, err := l.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Fatalf("expected to acquire uncontended lock")
	}

	if _, err := os.Stat(target + ".pid"); err != nil {
		t.Fatalf("expected pid file to exist: %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(target + ".pid"); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed after release")
	}
}

func TestStaleLockIsBroken(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "packages")
	pidPath := target + ".pid"

	if err := os.WriteFile(pidPath, []byte("99999"), 0o644); err != nil {
		t.Fatalf("seeding stale lock: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(pidPath, old, old); err != nil {
		t.Fatalf("backdating: %v", err)
	}

	l := New(target, 20*time.Millisecond)
	ok, err := l.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Fatalf("expected stale lock to be broken and reacquired")
	}
}
