package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newCompatCmd builds `depot compat NAME EXPR`: records a compat bound
// against a declared dependency (or the special "julia" entry), taking
// effect on the next resolve rather than moving anything immediately.
func newCompatCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "compat NAME EXPR",
		Short: "Set a compat bound for a dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}
			if err := c.SetCompat(args[0], args[1]); err != nil {
				_ = c.Reset()
				return errors.Wrapf(err, "setting compat for %s", args[0])
			}
			if err := c.Write(); err != nil {
				_ = c.Reset()
				return err
			}
			return nil
		},
	}
}
