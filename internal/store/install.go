package store

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/vcs"
	"github.com/google/uuid"
	shutil "github.com/termie/go-shutil"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/model"
)

// Source describes where a specific package version can be fetched from,
// in the preference order depot tries them (spec.md §4.D): a package
// server tarball URL first (cheap, no git needed), then a GitHub tarball
// URL, then a full git clone as the last resort.
type Source struct {
	TarballURLs []string
	RepoURL     string
	Rev         string
}

// Target is what one install call is installing: identity, content hash,
// and where to find it.
type Target struct {
	UUID     uuid.UUID
	Name     string
	TreeHash model.TreeHash
	Source   Source
}

const gitActivityTimeout = 2 * time.Minute

// InstallOptions tunes one Install call beyond its identity/source.
type InstallOptions struct {
	// IgnoreHashMismatch downgrades a tree-hash mismatch from a fatal
	// IntegrityError to a warning returned alongside the (still-moved)
	// install path, per spec.md §7 / JULIA_PKG_IGNORE_HASHES.
	IgnoreHashMismatch bool
}

// Install fetches target into depot, verifying its content hash before
// moving the result into place, and returns the final install path.
// Already-installed targets are a no-op (spec.md P1: installs are
// idempotent and content-addressed).
func Install(ctx context.Context, depot *Depot, target Target, opts ...InstallOptions) (string, error) {
	path, _, err := installWithWarning(ctx, depot, target, opts...)
	return path, err
}

// installWithWarning is Install's full form, additionally surfacing a
// non-fatal tree-hash mismatch when InstallOptions.IgnoreHashMismatch let
// the install proceed anyway.
func installWithWarning(ctx context.Context, depot *Depot, target Target, opts ...InstallOptions) (string, error, error) {
	var opt InstallOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	id := target.UUID
	if p, ok := depot.IsInstalled(id, target.Name, target.TreeHash); ok {
		return p, nil, nil
	}

	tmpDir, err := os.MkdirTemp(depot.PackagesDir(), ".install-*")
	if err != nil {
		return "", nil, depoterr.Wrap(depoterr.KindIO, err, "creating staging directory")
	}
	defer os.RemoveAll(tmpDir)

	if err := fetchInto(ctx, tmpDir, target.Source); err != nil {
		return "", nil, err
	}

	got, err := ComputeTreeHash(tmpDir)
	if err != nil {
		return "", nil, err
	}
	var warning error
	if got != target.TreeHash {
		mismatch := depoterr.New(depoterr.KindIntegrity, fmt.Sprintf("tree hash mismatch for %s: got %s, want %s", target.Name, got, target.TreeHash))
		if !opt.IgnoreHashMismatch {
			return "", nil, mismatch
		}
		warning = mismatch
	}

	dest := depot.PackagePath(Slug{Name: target.Name, UUID: id, TreeHash: got})
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", nil, depoterr.Wrap(depoterr.KindIO, err, "creating package directory")
	}
	if err := moveIntoPlace(tmpDir, dest); err != nil {
		return "", nil, err
	}
	if err := makeReadOnly(dest); err != nil {
		return "", nil, err
	}
	return dest, warning, nil
}

func fetchInto(ctx context.Context, dir string, src Source) error {
	for _, url := range src.TarballURLs {
		if err := downloadAndExtractTarball(ctx, url, dir); err == nil {
			return nil
		}
		// Tarball fetch failed (404, network error, truncated archive):
		// fall through to the next URL, and ultimately to git, rather than
		// failing the whole install on one dead mirror.
	}
	if src.RepoURL != "" {
		return cloneAtRev(ctx, src.RepoURL, src.Rev, dir)
	}
	return depoterr.New(depoterr.KindNetwork, "no tarball URL succeeded and no repo URL was given")
}

func downloadAndExtractTarball(ctx context.Context, url, destDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return depoterr.Wrap(depoterr.KindNetwork, err, "fetching "+url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return depoterr.New(depoterr.KindNetwork, fmt.Sprintf("fetching %s: status %d", url, resp.StatusCode))
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return depoterr.Wrap(depoterr.KindIntegrity, err, "opening gzip stream")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return depoterr.Wrap(depoterr.KindIntegrity, err, "reading tar stream")
		}
		// GitHub/package-server tarballs wrap contents in a single
		// top-level directory; strip it so destDir holds the package
		// root directly.
		name := stripTopLevelDir(hdr.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(destDir, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}

func stripTopLevelDir(name string) string {
	for i, c := range name {
		if c == '/' {
			return name[i+1:]
		}
	}
	return ""
}

// cloneAtRev clones repoURL and checks out rev, grounded on the teacher's
// vcs_repo.go use of Masterminds/vcs to abstract over the underlying VCS.
// After UpdateVersion, it runs a plumbing-level `checkout-index` to
// materialize a clean working tree from the checked-out commit's tree
// object — the "read-tree + checkout-index" idiom this component
// generalizes from the teacher's vendor-tree extraction — rather than
// trusting whatever UpdateVersion left on disk (stray ignored files,
// partial checkouts from an interrupted prior attempt).
func cloneAtRev(ctx context.Context, repoURL, rev, destDir string) error {
	repo, err := vcs.NewRepo(repoURL, destDir)
	if err != nil {
		return depoterr.Wrap(depoterr.KindNetwork, err, "preparing repo "+repoURL)
	}
	if err := repo.Get(); err != nil {
		return depoterr.Wrap(depoterr.KindNetwork, err, "cloning "+repoURL)
	}
	if rev != "" {
		if err := repo.UpdateVersion(rev); err != nil {
			return depoterr.Wrap(depoterr.KindNetwork, err, "checking out "+rev)
		}
	}
	if _, err := runFromRepoDir(ctx, repo, gitActivityTimeout, "checkout-index", "-a", "-f"); err != nil {
		return depoterr.Wrap(depoterr.KindIntegrity, err, "materializing working tree")
	}
	if err := os.RemoveAll(filepath.Join(destDir, ".git")); err != nil {
		return depoterr.Wrap(depoterr.KindIO, err, "removing .git metadata")
	}
	return nil
}

// moveIntoPlace copies src's tree to dest, using termie/go-shutil the way
// the teacher uses it in fs.go for vendor directory installs; depot always
// stages into a temp dir first and moves the verified result, so this is a
// copy (src is removed by the caller's deferred cleanup) rather than a bare
// rename to stay correct across filesystem boundaries.
func moveIntoPlace(src, dest string) error {
	if err := shutil.CopyTree(src, dest, nil); err != nil {
		return depoterr.Wrap(depoterr.KindIO, err, "installing into "+dest)
	}
	return nil
}

// makeReadOnly strips write permission from every file under dir, per
// spec.md's "installed package trees are read-only" invariant.
func makeReadOnly(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		mode := info.Mode().Perm() &^ 0o222
		return os.Chmod(path, mode)
	})
}
