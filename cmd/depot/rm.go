package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newRmCmd builds `depot rm NAME...`: drops each name as a direct
// dependency and re-resolves, letting anything it was the sole reason for
// installing fall out of the next manifest.
func newRmCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove one or more direct dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}

			for _, name := range args {
				if err := c.RemoveDep(name); err != nil {
					_ = c.Reset()
					return errors.Wrapf(err, "removing %s", name)
				}
			}

			result, err := tieredSolve(c, ctx.View, ctx.Options.Preserve, ctx.Options.AllowReresolve, ctx.Depot)
			if err != nil {
				_ = c.Reset()
				return err
			}
			if err := applyAndInstall(ctx, c, result); err != nil {
				_ = c.Reset()
				return err
			}
			return nil
		},
	}
}
