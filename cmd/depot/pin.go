package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newPinCmd builds `depot pin NAME...`: marks each already-resolved
// dependency immune to future upgrades without moving it now.
func newPinCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "pin NAME...",
		Short: "Pin one or more dependencies to their resolved version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := c.Pin(name); err != nil {
					_ = c.Reset()
					return errors.Wrapf(err, "pinning %s", name)
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
