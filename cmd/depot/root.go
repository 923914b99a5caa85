// Command depot is the package manager CLI: add/rm/pin/free/compat mutate
// the active project, status/instantiate/gc/activate/sandbox drive the
// read side and the content store, all thin adapters over components A-F.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/depotpm/depot/internal/depoterr"
	"github.com/depotpm/depot/internal/resolve"
)

func main() {
	os.Exit(run())
}

func run() int {
	root, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "depot:", err)
		return 1
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "depot:", err)
		return depoterr.ExitCode(err)
	}
	return 0
}

// newRootCmd builds the full command tree. Ctx is constructed once, in
// PersistentPreRunE, so every subcommand shares the same depot/registry
// view instead of each reloading it independently — matching the
// teacher's single shared *dep.Ctx per invocation.
func newRootCmd() (*cobra.Command, error) {
	var ctx *Ctx
	var verbose, reresolve bool
	var preserve string

	root := &cobra.Command{
		Use:           "depot",
		Short:         "A package manager for content-addressed environments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCtx()
			if err != nil {
				return err
			}
			c.Options.Verbose = verbose
			if reresolve {
				c.Options.AllowReresolve = true
			}
			if preserve != "" {
				level, err := parsePreserveLevel(preserve)
				if err != nil {
					return err
				}
				c.Options.Preserve = level
			}
			ctx = c
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&reresolve, "reresolve", false, "fall back to the other preservation tiers on a resolver conflict")
	root.PersistentFlags().StringVar(&preserve, "preserve", "", "resolver preservation tier (all-installed, all, direct, semver, none, tiered, tiered-installed)")

	getCtx := func() *Ctx { return ctx }

	root.AddCommand(
		newAddCmd(getCtx),
		newRmCmd(getCtx),
		newPinCmd(getCtx),
		newFreeCmd(getCtx),
		newCompatCmd(getCtx),
		newStatusCmd(getCtx),
		newInstantiateCmd(getCtx),
		newGCCmd(getCtx),
		newActivateCmd(getCtx),
		newSandboxCmd(getCtx),
	)

	return root, nil
}

// parsePreserveLevel maps the --preserve flag's kebab-case spelling onto a
// resolve.PreserveLevel.
func parsePreserveLevel(s string) (resolve.PreserveLevel, error) {
	switch s {
	case "all-installed":
		return resolve.PreserveAllInstalled, nil
	case "all":
		return resolve.PreserveAll, nil
	case "direct":
		return resolve.PreserveDirect, nil
	case "semver":
		return resolve.PreserveSemver, nil
	case "none":
		return resolve.PreserveNone, nil
	case "tiered":
		return resolve.PreserveTiered, nil
	case "tiered-installed":
		return resolve.PreserveTieredInstalled, nil
	default:
		return 0, errors.Errorf("unrecognized --preserve value %q", s)
	}
}
