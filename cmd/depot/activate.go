package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depotpm/depot/internal/env"
	"github.com/depotpm/depot/internal/gc"
)

// newActivateCmd builds `depot activate [path]`: switches the active
// environment (spec.md §4.A's activate(path, {shared, temp})), prints the
// resulting project directory for a shell wrapper to pick up, and records
// a usage-log entry so gc's liveness marking can see it.
func newActivateCmd(getCtx func() *Ctx) *cobra.Command {
	var shared, temp bool

	cmd := &cobra.Command{
		Use:   "activate [path]",
		Short: "Activate a project environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			path := ""
			if len(args) > 0 {
				path = args[0]
			}

			c, err := env.Activate(ctx.DepotPaths, ctx.Active, path, env.ActivateOptions{Shared: shared, Temp: temp})
			if err != nil {
				return errors.Wrap(err, "activating environment")
			}
			ctx.Active = c

			if err := gc.LogUsage(ctx.DepotPaths[0], c.AbsRoot); err != nil {
				ctx.Log.Warnf("recording usage: %s", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), c.AbsRoot)
			return nil
		},
	}
	cmd.Flags().BoolVar(&shared, "shared", false, "activate a named shared environment in the depot")
	cmd.Flags().BoolVar(&temp, "temp", false, "activate a fresh temporary environment")
	return cmd
}
