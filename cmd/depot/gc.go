package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depotpm/depot/internal/gc"
)

// newGCCmd builds `depot gc`: sweeps every configured depot, marking
// packages live off every still-existing usage-log project's manifest and
// moving anything unreferenced through the delayed-deletion orphan ledger
// (component F, spec.md P7).
func newGCCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Garbage-collect unreferenced packages from the depot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			out := cmd.OutOrStdout()
			for _, path := range ctx.DepotPaths {
				report, err := gc.Sweep(path, gc.Options{CollectDelay: ctx.Options.CollectDelay})
				if err != nil {
					return errors.Wrapf(err, "sweeping %s", path)
				}
				fmt.Fprintf(out, "%s: %d newly orphaned, %d deleted\n", path, len(report.NewlyOrphaned), len(report.Deleted))
				for _, e := range report.Errors {
					ctx.Log.Warnf("%s: %s", path, e)
				}
			}
			return nil
		},
	}
}
