package artifact

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/tomlfile"
)

// Document is the parsed form of a package's Artifacts.toml: an ordered
// set of named artifacts, possibly with several platform variants sharing
// a name.
type Document struct {
	// Entries maps an artifact name to every platform variant declared for
	// it, in declaration order.
	Entries map[string][]Meta
}

func NewDocument() *Document {
	return &Document{Entries: make(map[string][]Meta)}
}

// Select returns the Meta within name's variants whose Platform matches
// want, per spec.md §4.E's select_downloadable_artifacts operation. If
// more than one variant matches, the first declared wins, mirroring the
// teacher's general "first match wins" resolution style seen in its own
// source selection code.
func (d *Document) Select(name string, want Platform) (Meta, bool) {
	for _, m := range d.Entries[name] {
		if m.Platform.Matches(want) {
			return m, true
		}
	}
	return Meta{}, false
}

type rawMeta struct {
	OS         string            `toml:"os"`
	Arch       string            `toml:"arch"`
	Tags       map[string]string `toml:"tags"`
	GitTreeSHA1 string           `toml:"git-tree-sha1"`
	Download   []string          `toml:"download"`
	Executable bool              `toml:"executable"`
	LazyLoad   bool              `toml:"lazy"`
}

// DecodeArtifacts parses an Artifacts.toml payload: top-level tables keyed
// by artifact name, each either a single inline table or an array of
// tables (multiple platform variants).
func DecodeArtifacts(data []byte) (*Document, error) {
	var raw map[string]interface{}
	if err := tomlfile.DecodeGeneric(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing Artifacts.toml")
	}
	doc := NewDocument()
	for name, v := range raw {
		metas, err := decodeVariants(v)
		if err != nil {
			return nil, errors.Wrapf(err, "artifact %q", name)
		}
		doc.Entries[name] = metas
	}
	return doc, nil
}

func decodeVariants(v interface{}) ([]Meta, error) {
	switch vv := v.(type) {
	case []map[string]interface{}:
		out := make([]Meta, 0, len(vv))
		for _, m := range vv {
			meta, err := decodeOneMeta(m)
			if err != nil {
				return nil, err
			}
			out = append(out, meta)
		}
		return out, nil
	case []interface{}:
		out := make([]Meta, 0, len(vv))
		for _, item := range vv {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.New("expected a table")
			}
			meta, err := decodeOneMeta(m)
			if err != nil {
				return nil, err
			}
			out = append(out, meta)
		}
		return out, nil
	case map[string]interface{}:
		meta, err := decodeOneMeta(vv)
		if err != nil {
			return nil, err
		}
		return []Meta{meta}, nil
	default:
		return nil, errors.New("expected a table or array of tables")
	}
}

func decodeOneMeta(m map[string]interface{}) (Meta, error) {
	meta := Meta{Platform: Platform{Tags: map[string]string{}}}
	if v, ok := m["os"].(string); ok {
		meta.Platform.OS = v
	}
	if v, ok := m["arch"].(string); ok {
		meta.Platform.Arch = v
	}
	if tags, ok := m["tags"].(map[string]interface{}); ok {
		for k, tv := range tags {
			if s, ok := tv.(string); ok {
				meta.Platform.Tags[k] = s
			}
		}
	}
	if v, ok := m["git-tree-sha1"].(string); ok {
		th, err := model.ParseTreeHash(v)
		if err != nil {
			return meta, err
		}
		meta.TreeHash = th
	}
	if dls, ok := m["download"].([]interface{}); ok {
		for _, d := range dls {
			if s, ok := d.(string); ok {
				meta.Downloads = append(meta.Downloads, s)
			}
		}
	}
	if v, ok := m["executable"].(bool); ok {
		meta.Executable = v
	}
	if v, ok := m["lazy"].(bool); ok {
		meta.LazyLoad = v
	}
	return meta, nil
}

// EncodeArtifacts writes doc back out as ordered TOML: artifact names
// sorted, each variant's keys in a fixed order.
func EncodeArtifacts(doc *Document) []byte {
	names := make([]string, 0, len(doc.Entries))
	for name := range doc.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	d := tomlfile.New()
	for i, name := range names {
		if i > 0 {
			d.Blank()
		}
		variants := doc.Entries[name]
		if len(variants) == 1 {
			d.TableHeader(name)
			writeMeta(d, variants[0])
			continue
		}
		for _, m := range variants {
			d.ArrayTableHeader(name)
			writeMeta(d, m)
		}
	}
	return d.Bytes()
}

func writeMeta(d *tomlfile.Doc, m Meta) {
	if !m.TreeHash.IsZero() {
		d.KV("git-tree-sha1", m.TreeHash.String())
	}
	if m.LazyLoad {
		d.KV("lazy", true)
	}
	if len(m.Downloads) > 0 {
		d.KVStringList("download", m.Downloads)
	}
	if m.Platform.Arch != "" {
		d.KV("arch", m.Platform.Arch)
	}
	if m.Executable {
		d.KV("executable", true)
	}
	if m.Platform.OS != "" {
		d.KV("os", m.Platform.OS)
	}
	if len(m.Platform.Tags) > 0 {
		d.KVInlineMap("tags", m.Platform.Tags)
	}
}
