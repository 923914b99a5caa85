package gc

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/pidlock"
)

// pidlockFor returns the lock that keeps two sweeps of depotRoot from
// running at once.
func pidlockFor(depotRoot string) *pidlock.Lock {
	return pidlock.New(filepath.Join(depotRoot, "logs", "gc"), pidlock.DefaultStaleness)
}

// Sweep runs mark-and-sweep over depotRoot's packages/ directory
// (spec.md §4.F):
//  1. condense the usage log (done lazily by LogUsage on each write)
//  2. mark live manifests: load every still-existing project the usage
//     log recorded, and collect every (name, tree hash) its manifest names
//  3. sweep: any installed package tree not in the live set is moved into
//     the orphan ledger with a timestamp, not deleted
//  4. delayed deletion: orphan entries older than CollectDelay are deleted
//  5. prune: installed-package-name directories left empty are removed
//
// Only packages/ is marked and swept: artifacts/, clones/ and scratch
// spaces are neither marked live nor orphaned, and nothing under them is
// ever deleted by Sweep.
//
// GC is best-effort throughout: a failure acting on one path is logged
// into the returned Report and does not abort the rest of the sweep,
// matching spec.md §7's GC recovery policy.
func Sweep(depotRoot string, opts Options) (*Report, error) {
	lock := pidlockFor(depotRoot)
	ok, err := lock.TryAcquire()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring gc lock")
	}
	if !ok {
		return nil, errors.New("another gc sweep is already running")
	}
	defer lock.Release()

	report := &Report{}

	live, err := markLive(depotRoot, report)
	if err != nil {
		return nil, err
	}

	orphans, err := readOrphans(depotRoot)
	if err != nil {
		return nil, err
	}

	packagesDir := filepath.Join(depotRoot, "packages")
	nameDirs, err := os.ReadDir(packagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, writeOrphans(depotRoot, orphans)
		}
		return nil, errors.Wrap(err, "listing packages directory")
	}

	now := opts.now()
	for _, nameDir := range nameDirs {
		if !nameDir.IsDir() {
			continue
		}
		name := nameDir.Name()
		slugDirs, err := os.ReadDir(filepath.Join(packagesDir, name))
		if err != nil {
			report.Errors = append(report.Errors, errors.Wrapf(err, "listing %s", name))
			continue
		}
		for _, slugDir := range slugDirs {
			path := filepath.Join(packagesDir, name, slugDir.Name())
			if isLivePath(live, name, slugDir.Name()) {
				delete(orphans, path)
				continue
			}
			if _, already := orphans[path]; !already {
				orphans[path] = OrphanRecord{Path: path, OrphanedAt: now}
				report.NewlyOrphaned = append(report.NewlyOrphaned, path)
			}
		}
	}

	// Step 4: delete orphans past the grace period. Overridden artifacts
	// are never in this loop at all since only packages/ is swept here;
	// internal/artifact's own store stays untouched by this pass.
	delay := opts.collectDelay()
	for path, rec := range orphans {
		if now.Sub(rec.OrphanedAt) < delay {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			report.Errors = append(report.Errors, errors.Wrapf(err, "deleting orphan %s", path))
			continue
		}
		delete(orphans, path)
		report.Deleted = append(report.Deleted, path)
	}

	if err := writeOrphans(depotRoot, orphans); err != nil {
		return nil, err
	}

	// Step 5: prune now-empty package-name shells.
	for _, nameDir := range nameDirs {
		dir := filepath.Join(packagesDir, nameDir.Name())
		empty, err := isEmptyDirOrNotExist(dir)
		if err != nil {
			report.Errors = append(report.Errors, errors.Wrapf(err, "checking %s", dir))
			continue
		}
		if empty {
			if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
				report.Errors = append(report.Errors, errors.Wrapf(err, "pruning %s", dir))
			}
		}
	}

	return report, nil
}

func isLivePath(live map[LiveKey]bool, name, slugName string) bool {
	for key := range live {
		if key.Name == name && slugMatchesTreeHash(slugName, key.TreeHash) {
			return true
		}
	}
	return false
}

func slugMatchesTreeHash(slugName string, th model.TreeHash) bool {
	hex := th.String()
	return len(slugName) >= len(hex) && slugName[len(slugName)-len(hex):] == hex
}

// markLive walks every still-existing project path the usage log recorded
// and collects every package its manifest names, by (name, tree hash).
func markLive(depotRoot string, report *Report) (map[LiveKey]bool, error) {
	live := make(map[LiveKey]bool)

	entries, err := readUsageLog(filepath.Join(depotRoot, "logs", usageLogName))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, err := os.Stat(e.Path); err != nil {
			continue
		}
		c, err := env.Load(e.Path)
		if err != nil {
			report.Errors = append(report.Errors, errors.Wrapf(err, "loading project at %s", e.Path))
			continue
		}
		if c.Manifest == nil {
			continue
		}
		for _, entry := range c.Manifest.Deps {
			if entry.TreeHash.IsZero() {
				continue // dev/path/repo-tracked entries have no content store tree
			}
			live[LiveKey{Name: entry.Name, TreeHash: entry.TreeHash}] = true
		}
	}
	return live, nil
}
