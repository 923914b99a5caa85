// Package pidlock implements the advisory per-depot install lock spec.md
// §5 requires to keep concurrent depot processes from racing installs of
// the same package. Grounded on the teacher's vendored go-flock usage (a
// sibling file lock around the on-disk install tree), using
// github.com/gofrs/flock — the maintained successor of the
// github.com/theckman/go-flock API the teacher vendored — since
// theckman/go-flock is no longer a fetchable module path.
package pidlock

import (
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// DefaultStaleness is how long a lock file may go untouched before a new
// process is willing to break it (spec.md §5: crashed processes must not
// wedge other depot invocations forever).
const DefaultStaleness = 20 * time.Second

// Lock is an advisory, staleness-aware file lock over path+".pid".
type Lock struct {
	path      string
	staleness time.Duration
	fl        *flock.Flock
}

// New returns a Lock guarding path (typically a depot's packages/ or
// environments/ directory).
func New(path string, staleness time.Duration) *Lock {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Lock{path: path + ".pid", staleness: staleness, fl: flock.New(path + ".pid")}
}

// TryAcquire attempts to take the lock, breaking it first if the existing
// lock file is older than the staleness window (presumed to belong to a
// crashed process) and stamping the file with the current pid.
func (l *Lock) TryAcquire() (bool, error) {
	if info, err := os.Stat(l.path); err == nil {
		if time.Since(info.ModTime()) > l.staleness {
			_ = os.Remove(l.path)
			l.fl = flock.New(l.path)
		}
	}

	ok, err := l.fl.TryLock()
	if err != nil {
		return false, errors.Wrapf(err, "locking %s", l.path)
	}
	if !ok {
		return false, nil
	}
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = l.fl.Unlock()
		return false, errors.Wrapf(err, "stamping pid into %s", l.path)
	}
	return true, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return errors.Wrapf(err, "unlocking %s", l.path)
	}
	return os.Remove(l.path)
}

// Touch refreshes the lock file's mtime so a long-running holder isn't
// mistaken for stale by another process.
func (l *Lock) Touch() error {
	now := time.Now()
	return os.Chtimes(l.path, now, now)
}
