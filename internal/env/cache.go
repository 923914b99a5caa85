package env

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/tomlfile"
)

// state is the EnvCache state machine from spec.md §4.A: only
// mutated -> written is externally visible.
type state int

const (
	stateFresh state = iota
	stateLoaded
	stateMutated
	stateWritten
)

// Cache is an atomic read/diff/write unit over one Project + Manifest pair.
type Cache struct {
	AbsRoot      string
	ProjectPath  string
	ManifestPath string

	Project  *Project
	Manifest *Manifest

	state state

	origProjectBytes  []byte
	origManifestBytes []byte
}

var errProjectNotFound = depoterr.New(depoterr.KindUserInput, "could not find Project.toml in this directory or any parent")

// findProjectRoot walks upward from `from` looking for a project file,
// mirroring the teacher's findProjectRoot walk for Gopkg.toml.
func findProjectRoot(from string) (string, string, error) {
	for {
		for _, name := range []string{ProjectName, JuliaProjectName} {
			p := filepath.Join(from, name)
			if _, err := os.Stat(p); err == nil {
				return from, name, nil
			}
		}
		parent := filepath.Dir(from)
		if parent == from {
			return "", "", errProjectNotFound
		}
		from = parent
	}
}

// Load finds Project.toml (or JuliaProject.toml) starting at path (or the
// working directory, if path is empty), parses it and its companion
// manifest if present, and returns a fresh Cache in the "loaded" state.
func Load(path string) (*Cache, error) {
	var err error
	if path == "" {
		path, err = os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
	}
	path = filepath.FromSlash(path)

	root, projectFilename, err := findProjectRoot(path)
	if err != nil {
		return nil, err
	}

	projectPath := filepath.Join(root, projectFilename)
	project, projectBytes, err := loadProjectFile(projectPath)
	if err != nil {
		return nil, depoterr.Wrap(depoterr.KindIO, err, "loading "+projectFilename)
	}

	manifestFilename := ManifestName
	if projectFilename == JuliaProjectName {
		manifestFilename = JuliaManifestName
	}
	manifestPath := filepath.Join(root, manifestFilename)

	var manifest *Manifest
	var manifestBytes []byte
	if _, statErr := os.Stat(manifestPath); statErr == nil {
		manifest, manifestBytes, err = loadManifestFile(manifestPath)
		if err != nil {
			return nil, depoterr.Wrap(depoterr.KindIO, err, "loading "+manifestFilename)
		}
		if err := validateManifestReachability(project, manifest); err != nil {
			return nil, errors.Wrap(err, "validating manifest")
		}
	}

	return &Cache{
		AbsRoot:           root,
		ProjectPath:       projectPath,
		ManifestPath:      manifestPath,
		Project:           project,
		Manifest:          manifest,
		state:             stateLoaded,
		origProjectBytes:  projectBytes,
		origManifestBytes: manifestBytes,
	}, nil
}

// MarkMutated transitions the cache out of "loaded" once a mutating
// operation (add/rm/pin/free/compat) has changed Project or Manifest.
func (c *Cache) MarkMutated() {
	if c.state == stateLoaded {
		c.state = stateMutated
	}
}

// Write serializes Project and Manifest with stable key ordering, skipping
// any document whose bytes are unchanged from what was last read (spec.md
// §4.A). It is a no-op unless the cache has been marked mutated.
//
// The two files are written in sequence, not as a single transaction, so a
// failure on the manifest write after the project write has already landed
// on disk would otherwise leave the pair inconsistent; Write rolls the
// project file back to its pre-write bytes before returning that error, so
// callers (per spec.md §7 / P10) only ever see either both files updated or
// neither.
func (c *Cache) Write() error {
	if c.state != stateMutated {
		return nil
	}

	prevProjectBytes := c.origProjectBytes

	projectBytes := encodeProject(c.Project)
	if err := writeIfChanged(c.ProjectPath, projectBytes); err != nil {
		return depoterr.Wrap(depoterr.KindIO, err, "writing project")
	}

	if c.Manifest != nil {
		c.Manifest.ProjectHash = ProjectHash(c.Project)
		manifestBytes := encodeManifest(c.Manifest)
		if err := writeIfChanged(c.ManifestPath, manifestBytes); err != nil {
			if rbErr := restoreOnDisk(c.ProjectPath, prevProjectBytes); rbErr != nil {
				return depoterr.Wrap(depoterr.KindIO, rbErr, "rolling back project after failed manifest write")
			}
			return depoterr.Wrap(depoterr.KindIO, err, "writing manifest")
		}
		c.origManifestBytes = manifestBytes
	}

	c.origProjectBytes = projectBytes
	c.state = stateWritten
	return nil
}

// restoreOnDisk rewrites path back to orig, or removes it if orig is empty
// (meaning the file did not exist before the write being undone), used to
// roll back a just-written file when the write it must accompany fails.
func restoreOnDisk(path string, orig []byte) error {
	if len(orig) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return tomlfile.WriteAtomic(path, orig)
}

// Reset discards any in-memory mutation, restoring Project/Manifest to the
// bytes last read from or written to disk — used by a caller that mutates a
// Cache (e.g. a multi-step CLI command, or a test) and wants to abandon the
// attempt without the mutated structs leaking into whatever runs next, per
// spec.md §7's "no writes on failure" recovery policy (P10). It decodes
// origProjectBytes/origManifestBytes directly rather than re-reading from
// disk, so it stays correct even when nothing was ever written.
func (c *Cache) Reset() error {
	project, err := decodeProject(c.origProjectBytes)
	if err != nil {
		return err
	}
	c.Project = project
	if len(c.origManifestBytes) > 0 {
		manifest, err := decodeManifest(c.origManifestBytes)
		if err != nil {
			return err
		}
		c.Manifest = manifest
	} else {
		c.Manifest = nil
	}
	c.state = stateLoaded
	return nil
}
