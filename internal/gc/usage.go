package gc

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/tomlfile"
)

// usageEntry is one line of usage.toml: a project root depot has resolved
// or instantiated against, and when it was last touched.
type usageEntry struct {
	Path       string
	LastUsedAt time.Time
}

const usageLogName = "usage.toml"

// LogUsage records that path was just used, for the next Sweep's live-set
// marking to consult. Condenses as it writes: entries for paths that no
// longer exist are dropped, and a repeated path collapses to its latest
// timestamp (spec.md §4.F step 1, "usage-log condensation").
func LogUsage(depotRoot, path string) error {
	logPath := filepath.Join(depotRoot, "logs", usageLogName)
	entries, err := readUsageLog(logPath)
	if err != nil {
		return err
	}

	now := time.Now()
	found := false
	condensed := entries[:0]
	for _, e := range entries {
		if _, err := os.Stat(e.Path); err != nil {
			continue // condense away: path no longer exists
		}
		if e.Path == path {
			e.LastUsedAt = now
			found = true
		}
		condensed = append(condensed, e)
	}
	if !found {
		condensed = append(condensed, usageEntry{Path: path, LastUsedAt: now})
	}

	return writeUsageLog(logPath, condensed)
}

func readUsageLog(path string) ([]usageEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading usage log")
	}
	var raw struct {
		Entries []struct {
			Path       string `toml:"path"`
			LastUsedAt string `toml:"last_used_at"`
		} `toml:"entries"`
	}
	if err := tomlfile.DecodeGeneric(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing usage log")
	}
	out := make([]usageEntry, 0, len(raw.Entries))
	for _, e := range raw.Entries {
		t, err := time.Parse(time.RFC3339, e.LastUsedAt)
		if err != nil {
			continue
		}
		out = append(out, usageEntry{Path: e.Path, LastUsedAt: t})
	}
	return out, nil
}

func writeUsageLog(path string, entries []usageEntry) error {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	d := tomlfile.New()
	for _, e := range entries {
		d.ArrayTableHeader("entries")
		d.KV("path", e.Path)
		d.KV("last_used_at", e.LastUsedAt.UTC().Format(time.RFC3339))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating logs directory")
	}
	return tomlfile.WriteAtomic(path, d.Bytes())
}
