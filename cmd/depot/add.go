package main

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newAddCmd builds `depot add NAME...`: declares each name as a direct
// dependency (looked up by name in ctx's registry view), re-resolves, and
// installs the result, mirroring the teacher's own add.go minus the GOPATH
// vendoring step.
func newAddCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME...",
		Short: "Add one or more packages as direct dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}

			for _, name := range args {
				id, err := resolveNameToUUID(ctx, name)
				if err != nil {
					_ = c.Reset()
					return err
				}
				if err := c.AddDep(name, id); err != nil {
					_ = c.Reset()
					return errors.Wrapf(err, "adding %s", name)
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

// resolveNameToUUID looks name up across every registry ctx's View unions,
// requiring exactly one match (spec.md §4.B: a name ambiguous across
// registries is a user-facing error, not a silent pick).
func resolveNameToUUID(ctx *Ctx, name string) (uuid.UUID, error) {
	ids := ctx.View.UUIDsForName(name)
	switch len(ids) {
	case 0:
		return uuid.Nil, errors.Errorf("no registered package named %q", name)
	case 1:
		return ids[0], nil
	default:
		return uuid.Nil, errors.Errorf("%q is ambiguous across registries; specify a uuid", name)
	}
}
