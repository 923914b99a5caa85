package env

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/semverx"
)

// ActivateOptions mirrors spec.md §4.A's activate(path, {shared, temp}).
type ActivateOptions struct {
	Shared bool
	Temp   bool
}

// Activate resolves path into a project directory, creating it if
// necessary, and returns a freshly loaded (or newly initialized) Cache.
//
// depotPaths is the depot search path (first entry writable); active, if
// non-nil, is the currently active project, consulted when path names a
// dev-tracked dependency rather than a directory. This threads the
// "process-wide active project" state explicitly, per spec.md §9's design
// note, rather than relying on a package-level global.
func Activate(depotPaths []string, active *Cache, path string, opts ActivateOptions) (*Cache, error) {
	switch {
	case opts.Shared:
		return activateShared(depotPaths, path)
	case opts.Temp:
		return activateTemp()
	default:
		return activatePath(active, path)
	}
}

func activateShared(depotPaths []string, name string) (*Cache, error) {
	if len(depotPaths) == 0 {
		return nil, errors.New("no depots configured")
	}
	for _, depot := range depotPaths {
		dir := filepath.Join(depot, "environments", name)
		if _, err := os.Stat(filepath.Join(dir, ProjectName)); err == nil {
			return Load(dir)
		}
	}
	// Not found in any depot: create in the first (writable) depot.
	dir := filepath.Join(depotPaths[0], "environments", name)
	return initEmptyProject(dir)
}

func activateTemp() (*Cache, error) {
	dir, err := os.MkdirTemp("", "depot-env-")
	if err != nil {
		return nil, errors.Wrap(err, "creating temporary environment")
	}
	return initEmptyProject(dir)
}

func activatePath(active *Cache, path string) (*Cache, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		if _, err := os.Stat(filepath.Join(path, ProjectName)); err == nil {
			return Load(path)
		}
		if _, err := os.Stat(filepath.Join(path, JuliaProjectName)); err == nil {
			return Load(path)
		}
		return initEmptyProject(path)
	}

	if active != nil {
		if src, ok := active.Project.Sources[path]; ok && src.Path != "" {
			return Load(src.Path)
		}
	}

	return initEmptyProject(path)
}

func initEmptyProject(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating environment directory %s", dir)
	}
	projectPath := filepath.Join(dir, ProjectName)
	return &Cache{
		AbsRoot:      dir,
		ProjectPath:  projectPath,
		ManifestPath: filepath.Join(dir, ManifestName),
		Project:      newEmptyProject(),
		state:        stateMutated,
	}, nil
}

func newEmptyProject() *Project {
	return &Project{
		Deps:    make(map[string]uuid.UUID),
		Compat:  make(map[string]semverx.CompatExpr),
		Extras:  make(map[string]uuid.UUID),
		Targets: make(map[string][]string),
		Sources: make(map[string]SourceEntry),
		Extra:   make(map[string]interface{}),
	}
}
