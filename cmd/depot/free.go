package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newFreeCmd builds `depot free NAME...`: releases a pin, letting the next
// resolve move the dependency again.
func newFreeCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "free NAME...",
		Short: "Release a pin on one or more dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := c.Free(name); err != nil {
					_ = c.Reset()
					return errors.Wrapf(err, "freeing %s", name)
				}
			}
			if err := c.Write(); err != nil {
				_ = c.Reset()
				return err
			}
			return nil
		},
	}
}
