package env

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/tomlfile"
)

type rawManifestEntry struct {
	Name     string            `toml:"name"`
	UUID     string            `toml:"uuid"`
	Version  string            `toml:"version"`
	TreeHash string            `toml:"git-tree-sha1"`
	Path     string            `toml:"path"`
	Source   string            `toml:"source"`
	Rev      string            `toml:"rev"`
	Subdir   string            `toml:"subdir"`
	Pinned   bool              `toml:"pinned"`
	Deps     map[string]string `toml:"deps"`
}

type rawManifestFile struct {
	JuliaVersion   string             `toml:"julia_version"`
	ManifestFormat string             `toml:"manifest_format"`
	ProjectHash    string             `toml:"project_hash"`
	Deps           []rawManifestEntry `toml:"deps"`
}

func decodeManifest(data []byte) (*Manifest, error) {
	var raw rawManifestFile
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(err, "parsing manifest toml")
	}

	m := &Manifest{
		JuliaVersion:   raw.JuliaVersion,
		ManifestFormat: raw.ManifestFormat,
		ProjectHash:    raw.ProjectHash,
		Deps:           make(map[uuid.UUID]ManifestEntry, len(raw.Deps)),
	}

	for _, re := range raw.Deps {
		id, err := uuid.Parse(re.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing manifest entry uuid %q", re.UUID)
		}
		entry := ManifestEntry{
			Name:    re.Name,
			UUID:    id,
			Version: re.Version,
			Path:    re.Path,
			Pinned:  re.Pinned,
			Deps:    make(map[string]uuid.UUID, len(re.Deps)),
		}
		if re.TreeHash != "" {
			th, err := model.ParseTreeHash(re.TreeHash)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing tree hash for %s", re.Name)
			}
			entry.TreeHash = th
		}
		if re.Source != "" {
			entry.Repo = model.RepoInfo{Source: re.Source, Rev: re.Rev, Subdir: re.Subdir}
		}
		for depName, depIDStr := range re.Deps {
			depID, err := uuid.Parse(depIDStr)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing dep uuid for %s.%s", re.Name, depName)
			}
			entry.Deps[depName] = depID
		}
		if err := validateSourceKind(entry); err != nil {
			return nil, errors.Wrapf(err, "entry %s", re.Name)
		}
		m.Deps[id] = entry
	}

	return m, nil
}

// validateSourceKind enforces spec.md §3's "exactly one source kind" rule.
func validateSourceKind(e ManifestEntry) error {
	count := 0
	if e.Path != "" {
		count++
	}
	if !e.Repo.IsZero() {
		count++
	}
	if !e.TreeHash.IsZero() {
		count++
	}
	if count > 1 {
		return errors.Errorf("entry has more than one source kind set")
	}
	return nil
}

// encodeManifest serializes m into the canonical, ordered Manifest.toml
// form (spec.md §6: julia_version/manifest_format/project_hash header, then
// [[deps]] groups ordered by package name then UUID).
func encodeManifest(m *Manifest) []byte {
	d := tomlfile.New()
	d.Comment("This file is machine-generated - editing it directly is not advised")
	d.Blank()
	d.KV("julia_version", m.JuliaVersion)
	d.KV("manifest_format", m.ManifestFormat)
	d.KV("project_hash", m.ProjectHash)

	ids := sortedManifestIDs(m)
	for _, id := range ids {
		entry := m.Deps[id]
		d.Blank()
		d.ArrayTableHeader("deps")
		d.KV("name", entry.Name)
		d.KV("uuid", entry.UUID.String())
		switch entry.SourceKind() {
		case model.SourceRepo:
			d.KV("source", entry.Repo.Source)
			d.KV("rev", entry.Repo.Rev)
			if entry.Repo.Subdir != "" {
				d.KV("subdir", entry.Repo.Subdir)
			}
		case model.SourcePath:
			d.KV("path", entry.Path)
		case model.SourceRegistry:
			d.KV("git-tree-sha1", entry.TreeHash.String())
		}
		if entry.Version != "" {
			d.KV("version", entry.Version)
		}
		if entry.Pinned {
			d.KV("pinned", true)
		}
		if len(entry.Deps) > 0 {
			d.KVInlineMap("deps", stringifyDeps(entry.Deps))
		}
	}
	return d.Bytes()
}

func stringifyDeps(deps map[string]uuid.UUID) map[string]string {
	out := make(map[string]string, len(deps))
	for name, id := range deps {
		out[name] = id.String()
	}
	return out
}

func sortedManifestIDs(m *Manifest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m.Deps))
	for id := range m.Deps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ei, ej := m.Deps[ids[i]], m.Deps[ids[j]]
		if ei.Name != ej.Name {
			return ei.Name < ej.Name
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}

func loadManifestFile(path string) (*Manifest, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := decodeManifest(data)
	if err != nil {
		return nil, nil, err
	}
	return m, data, nil
}
