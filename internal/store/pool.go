package store

import (
	"context"
	"sync"
)

// InstallResult pairs one Target with its outcome. Warning is set when the
// install succeeded only because InstallOptions.IgnoreHashMismatch
// downgraded a tree-hash mismatch rather than aborting it.
type InstallResult struct {
	Target  Target
	Path    string
	Err     error
	Warning error
}

// InstallAll fans Install out across a bounded worker pool, cancelling the
// remaining work as soon as ctx is done (spec.md §5's concurrency model:
// bounded download concurrency, single-threaded result consumption).
// Results are returned in targets' input order, not completion order.
func InstallAll(ctx context.Context, depot *Depot, targets []Target, concurrency int, opts ...InstallOptions) []InstallResult {
	var opt InstallOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]InstallResult, len(targets))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, t := range targets {
		i, t := i, t
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = InstallResult{Target: t, Err: ctx.Err()}
				return
			}

			if ctx.Err() != nil {
				results[i] = InstallResult{Target: t, Err: ctx.Err()}
				return
			}
			path, warning, err := installWithWarning(ctx, depot, t, opt)
			results[i] = InstallResult{Target: t, Path: path, Err: err, Warning: warning}
		}()
	}
	wg.Wait()
	return results
}
