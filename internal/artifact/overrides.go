package artifact

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/tomlfile"
)

// DecodeOverrides parses an Overrides.toml payload: a top-level [hash]
// table keyed by content hash, and a top-level [<uuid>] table keyed by
// package UUID, each entry under it keyed by artifact name.
func DecodeOverrides(data []byte) (*Override, error) {
	var raw map[string]interface{}
	if err := tomlfile.DecodeGeneric(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing Overrides.toml")
	}
	ov := &Override{ByHash: map[string]OverrideTarget{}, ByUUIDName: map[string]OverrideTarget{}}

	if hashTable, ok := raw["hash"].(map[string]interface{}); ok {
		for hash, v := range hashTable {
			target, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			ov.ByHash[hash] = decodeTarget(target)
		}
	}
	for key, v := range raw {
		if key == "hash" {
			continue
		}
		pkgTable, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		for name, nv := range pkgTable {
			target, ok := nv.(map[string]interface{})
			if !ok {
				continue
			}
			ov.ByUUIDName[key+"/"+name] = decodeTarget(target)
		}
	}
	return ov, nil
}

func decodeTarget(m map[string]interface{}) OverrideTarget {
	var t OverrideTarget
	if v, ok := m["path"].(string); ok {
		t.Path = v
	}
	if dls, ok := m["download"].([]interface{}); ok {
		for _, d := range dls {
			if s, ok := d.(string); ok {
				t.Downloads = append(t.Downloads, s)
			}
		}
	}
	return t
}

// EncodeOverrides writes ov back out as ordered TOML, [hash] first, then
// per-package tables sorted by uuid/name key.
func EncodeOverrides(ov *Override) []byte {
	d := tomlfile.New()

	if len(ov.ByHash) > 0 {
		hashes := make([]string, 0, len(ov.ByHash))
		for h := range ov.ByHash {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)
		for _, h := range hashes {
			d.TableHeader("hash." + quoteSegment(h))
			writeOverrideTarget(d, ov.ByHash[h])
		}
		d.Blank()
	}

	keys := make([]string, 0, len(ov.ByUUIDName))
	for k := range ov.ByUUIDName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, name, _ := strings.Cut(k, "/")
		d.TableHeader(quoteSegment(id) + "." + quoteSegment(name))
		writeOverrideTarget(d, ov.ByUUIDName[k])
	}
	return d.Bytes()
}

func quoteSegment(s string) string { return `"` + s + `"` }

func writeOverrideTarget(d *tomlfile.Doc, t OverrideTarget) {
	if t.Path != "" {
		d.KV("path", t.Path)
	}
	if len(t.Downloads) > 0 {
		d.KVStringList("download", t.Downloads)
	}
}
