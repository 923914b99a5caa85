package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depotpm/depot/internal/sandbox"
)

// newSandboxCmd builds `depot sandbox`: synthesizes a temp environment that
// resolves the active package's own name alongside its "test" target
// dependencies, printing the resulting directory. Running anything inside
// it is left to the caller, per spec.md §1's build/test-execution Non-goal.
func newSandboxCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "sandbox",
		Short: "Build an isolated test environment for the active package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}
			if !c.Project.IsPackage() {
				return errors.New("active environment is not a package; it has no tests to sandbox")
			}

			testDeps := make(map[string]uuid.UUID)
			for _, name := range c.Project.Targets["test"] {
				if id, ok := c.Project.Deps[name]; ok {
					testDeps[name] = id
					continue
				}
				if id, ok := c.Project.Extras[name]; ok {
					testDeps[name] = id
				}
			}

			juliaVersion := runtimeVersion
			if c.Manifest != nil && c.Manifest.JuliaVersion != "" {
				juliaVersion = c.Manifest.JuliaVersion
			}

			sb, err := sandbox.New(sandbox.Request{
				TargetName:     c.Project.Name,
				TargetUUID:     c.Project.UUID,
				TestDeps:       testDeps,
				ParentManifest: c.Manifest,
				JuliaVersion:   juliaVersion,
			}, ctx.View)
			if err != nil {
				return errors.Wrap(err, "building sandbox")
			}

			fmt.Fprintln(cmd.OutOrStdout(), sb.Dir)
			return nil
		},
	}
}
