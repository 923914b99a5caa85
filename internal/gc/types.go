// Package gc implements component F: the depot garbage collector.
//
// No teacher equivalent exists (golang-dep never collects GOPATH), so the
// control flow here is built fresh, in the teacher's idiom: best-effort
// per-path operations that log and continue rather than abort the whole
// sweep (spec.md §7's GC recovery policy), reusing internal/tomlfile for
// the orphan ledger and internal/pidlock so two depot processes never
// sweep concurrently.
package gc

import (
	"time"

	"github.com/depotpm/depot/internal/model"
)

// LiveKey identifies one installed package tree by content, the unit GC
// marks and sweeps.
type LiveKey struct {
	Name     string
	TreeHash model.TreeHash
}

// OrphanRecord is one entry in orphaned.toml: a package tree found
// unreferenced during a sweep, recorded with the time it was first
// orphaned rather than deleted immediately — spec.md P7's delayed-deletion
// grace period, so a manifest re-pointing at a package a moment after a
// sweep doesn't lose the already-downloaded tree.
type OrphanRecord struct {
	Path       string
	OrphanedAt time.Time
}

// Options configures one Sweep invocation.
type Options struct {
	// CollectDelay is how long an orphaned tree must sit before Sweep
	// actually deletes it. Zero uses DefaultCollectDelay.
	CollectDelay time.Duration
	// Now is injectable for deterministic tests; nil uses time.Now.
	Now func() time.Time
}

const DefaultCollectDelay = 7 * 24 * time.Hour

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) collectDelay() time.Duration {
	if o.CollectDelay > 0 {
		return o.CollectDelay
	}
	return DefaultCollectDelay
}

// Report summarizes one Sweep's outcome.
type Report struct {
	NewlyOrphaned []string
	Deleted       []string
	Errors        []error
}
