// Package store implements component D: the content-addressed package
// installer. A Depot is one on-disk root holding installed package trees,
// keyed by a content-derived "slug" directory name so two projects that
// depend on the same package@treehash share one copy on disk.
package store

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/depotpm/depot/internal/model"
)

// Slug is the directory name a package version is installed under within
// a depot: name, a short disambiguating slice of the UUID, and the full
// tree hash, so the path is both human-legible and collision-resistant.
// Grounded on the teacher's vendor-dir naming in source_manager.go, which
// keys an on-disk cache directory by a hash of the import path; this
// generalizes that to UUID + content hash instead of import path.
type Slug struct {
	Name     string
	UUID     uuid.UUID
	TreeHash model.TreeHash
}

// String renders "Name-uuidprefix-treehash", e.g. "Example-7876af07-abcd...".
func (s Slug) String() string {
	return fmt.Sprintf("%s-%s-%s", s.Name, shortUUID(s.UUID), s.TreeHash.String())
}

func shortUUID(id uuid.UUID) string {
	return hex.EncodeToString(id[:4])
}

// LegacySlug is the slug shape depot reads for backward compatibility with
// environments installed before the UUID-prefixed form: bare
// "Name-treehash", disambiguated only by content hash. New installs never
// write this form; it exists solely so Depot.IsInstalled recognizes
// pre-existing on-disk trees without reinstalling them.
type LegacySlug struct {
	Name     string
	TreeHash model.TreeHash
}

func (s LegacySlug) String() string {
	return fmt.Sprintf("%s-%s", s.Name, s.TreeHash.String())
}
