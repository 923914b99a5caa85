package gc

import (
	"os"
)

// isEmptyDirOrNotExist reports whether name is an empty directory or
// doesn't exist, the same predicate the teacher's fs.go uses before
// pruning a directory — carried over here for the GC sweep's "prune
// emptied package-name shells" step.
func isEmptyDirOrNotExist(name string) (bool, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
