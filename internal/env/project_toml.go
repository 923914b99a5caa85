package env

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/semverx"
	"github.com/depotpm/depot/internal/tomlfile"
)

type rawSource struct {
	Path   string `toml:"path"`
	URL    string `toml:"url"`
	Rev    string `toml:"rev"`
	Subdir string `toml:"subdir"`
}

type rawProject struct {
	Name    string              `toml:"name"`
	UUID    string              `toml:"uuid"`
	Version string              `toml:"version"`
	Deps    map[string]string   `toml:"deps"`
	Compat  map[string]string   `toml:"compat"`
	Extras  map[string]string   `toml:"extras"`
	Targets map[string][]string `toml:"targets"`
	Sources map[string]rawSource `toml:"sources"`
}

var projectKnownKeys = map[string]bool{
	"name": true, "uuid": true, "version": true, "deps": true,
	"compat": true, "extras": true, "targets": true, "sources": true,
}

// decodeProject parses Project.toml content into a *Project.
func decodeProject(data []byte) (*Project, error) {
	var raw rawProject
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(err, "parsing project toml")
	}

	var generic map[string]interface{}
	if _, err := toml.Decode(string(data), &generic); err != nil {
		return nil, errors.Wrap(err, "parsing project toml (generic pass)")
	}
	for k := range projectKnownKeys {
		delete(generic, k)
	}

	p := &Project{
		Name:    raw.Name,
		Deps:    make(map[string]uuid.UUID, len(raw.Deps)),
		Compat:  make(map[string]semverx.CompatExpr, len(raw.Compat)),
		Extras:  make(map[string]uuid.UUID, len(raw.Extras)),
		Targets: raw.Targets,
		Sources: make(map[string]SourceEntry, len(raw.Sources)),
		Extra:   generic,
	}
	if raw.Version != "" {
		p.Version = raw.Version
	}
	if raw.UUID != "" {
		id, err := uuid.Parse(raw.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing project uuid %q", raw.UUID)
		}
		p.UUID = id
	}
	for name, idStr := range raw.Deps {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing deps.%s uuid %q", name, idStr)
		}
		p.Deps[name] = id
	}
	for name, idStr := range raw.Extras {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing extras.%s uuid %q", name, idStr)
		}
		p.Extras[name] = id
	}
	for name, exprText := range raw.Compat {
		expr, err := semverx.ParseCompat(exprText)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing compat.%s", name)
		}
		p.Compat[name] = expr
	}
	for name, src := range raw.Sources {
		p.Sources[name] = SourceEntry(src)
	}

	if err := validateProject(p); err != nil {
		return nil, errors.Wrap(err, "validating project")
	}
	return p, nil
}

// encodeProject serializes p into the canonical, ordered Project.toml form:
// name, uuid, version, then every unrecognized top-level key (p.Extra)
// alphabetically, written inline so it stays at top level, then the deps,
// compat, extras, targets and sources tables. weakdeps has no slot of its
// own; it is written with the other unrecognized keys.
func encodeProject(p *Project) []byte {
	d := tomlfile.New()
	if p.Name != "" {
		d.KV("name", p.Name)
	}
	if p.UUID != uuid.Nil {
		d.KV("uuid", p.UUID.String())
	}
	if p.Version != "" {
		d.KV("version", p.Version)
	}
	for _, name := range sortedAnyKeys(p.Extra) {
		d.KVAny(name, p.Extra[name])
	}
	if len(p.Deps) > 0 {
		d.Blank()
		d.TableHeader("deps")
		for _, name := range sortedStringUUIDKeys(p.Deps) {
			d.KV(name, p.Deps[name].String())
		}
	}
	if len(p.Compat) > 0 {
		d.Blank()
		d.TableHeader("compat")
		for _, name := range sortedCompatKeys(p.Compat) {
			d.KV(name, p.Compat[name].String())
		}
	}
	if len(p.Extras) > 0 {
		d.Blank()
		d.TableHeader("extras")
		for _, name := range sortedStringUUIDKeys(p.Extras) {
			d.KV(name, p.Extras[name].String())
		}
	}
	if len(p.Targets) > 0 {
		d.Blank()
		d.TableHeader("targets")
		for _, name := range sortedTargetKeys(p.Targets) {
			d.KVStringList(name, p.Targets[name])
		}
	}
	if len(p.Sources) > 0 {
		for _, name := range sortedSourceKeys(p.Sources) {
			d.Blank()
			d.TableHeader("sources." + name)
			src := p.Sources[name]
			if src.Path != "" {
				d.KV("path", src.Path)
			}
			if src.URL != "" {
				d.KV("url", src.URL)
			}
			if src.Rev != "" {
				d.KV("rev", src.Rev)
			}
			if src.Subdir != "" {
				d.KV("subdir", src.Subdir)
			}
		}
	}
	return d.Bytes()
}

func loadProjectFile(path string) (*Project, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := decodeProject(data)
	if err != nil {
		return nil, nil, err
	}
	return p, data, nil
}
