package env

import "github.com/depotpm/depot/internal/tomlfile"

// writeIfChanged skips the write entirely when path's on-disk contents
// already equal data, per spec.md §4.A ("Skip writing unchanged documents").
func writeIfChanged(path string, data []byte) error {
	if tomlfile.UnchangedOnDisk(path, data) {
		return nil
	}
	return tomlfile.WriteAtomic(path, data)
}
