package gc

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/tomlfile"
)

const orphanLogName = "orphaned.toml"

func orphanLogPath(depotRoot string) string {
	return filepath.Join(depotRoot, "logs", orphanLogName)
}

func readOrphans(depotRoot string) (map[string]OrphanRecord, error) {
	data, err := os.ReadFile(orphanLogPath(depotRoot))
	if os.IsNotExist(err) {
		return map[string]OrphanRecord{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading orphaned.toml")
	}
	var raw struct {
		Orphans []struct {
			Path       string `toml:"path"`
			OrphanedAt string `toml:"orphaned_at"`
		} `toml:"orphans"`
	}
	if err := tomlfile.DecodeGeneric(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing orphaned.toml")
	}
	out := make(map[string]OrphanRecord, len(raw.Orphans))
	for _, o := range raw.Orphans {
		t, err := time.Parse(time.RFC3339, o.OrphanedAt)
		if err != nil {
			continue
		}
		out[o.Path] = OrphanRecord{Path: o.Path, OrphanedAt: t}
	}
	return out, nil
}

func writeOrphans(depotRoot string, orphans map[string]OrphanRecord) error {
	list := make([]OrphanRecord, 0, len(orphans))
	for _, o := range orphans {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })

	d := tomlfile.New()
	for _, o := range list {
		d.ArrayTableHeader("orphans")
		d.KV("path", o.Path)
		d.KV("orphaned_at", o.OrphanedAt.UTC().Format(time.RFC3339))
	}
	path := orphanLogPath(depotRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating logs directory")
	}
	return tomlfile.WriteAtomic(path, d.Bytes())
}
