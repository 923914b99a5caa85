package env

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// ProjectHash computes project_hash: a stable digest of the Project's deps
// and compat (spec.md §3, §8 P8). Per the Open Question #2 decision recorded
// in DESIGN.md, extras and targets are deliberately excluded — they do not
// constrain what the resolver picks, only what targets may reference.
func ProjectHash(p *Project) string {
	names := make([]string, 0, len(p.Deps))
	for name := range p.Deps {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(p.Deps[name].String()))
		h.Write([]byte{0})
	}

	compatNames := make([]string, 0, len(p.Compat))
	for name := range p.Compat {
		compatNames = append(compatNames, name)
	}
	sort.Strings(compatNames)
	for _, name := range compatNames {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(p.Compat[name].String()))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// IsStale reports whether m's recorded project_hash no longer matches p,
// per spec.md §8 P8: a stale manifest is flagged but still usable.
func IsStale(p *Project, m *Manifest) bool {
	return m.ProjectHash != ProjectHash(p)
}
