package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/depotpm/depot/internal/env"
)

// newStatusCmd builds `depot status`: a read-only report of the active
// project's direct dependencies and their resolved versions, flagging a
// manifest whose project_hash no longer matches the declared deps
// (spec.md §8 P8's "stale but still usable" manifest state).
func newStatusCmd(getCtx func() *Ctx) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active project's dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := getCtx()
			c, err := ctx.requireActive()
			if err != nil {
				return err
			}
			printStatus(cmd, c)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, c *env.Cache) {
	out := cmd.OutOrStdout()
	names := make([]string, 0, len(c.Project.Deps))
	for name := range c.Project.Deps {
		names = append(names, name)
	}
	sort.Strings(names)

	if c.Manifest == nil {
		fmt.Fprintln(out, "No manifest; run instantiate or add a dependency to resolve one.")
	} else if env.IsStale(c.Project, c.Manifest) {
		fmt.Fprintln(out, "Manifest is stale relative to Project.toml.")
	}

	for _, name := range names {
		id := c.Project.Deps[name]
		if c.Manifest == nil {
			fmt.Fprintf(out, "  [%s] %s\n", id, name)
			continue
		}
		entry, ok := c.Manifest.Deps[id]
		if !ok {
			fmt.Fprintf(out, "  [%s] %s: not resolved\n", id, name)
			continue
		}
		switch {
		case entry.Version != "":
			pin := ""
			if entry.Pinned {
				pin = " (pinned)"
			}
			fmt.Fprintf(out, "  [%s] %s v%s%s\n", id, name, entry.Version, pin)
		case entry.Path != "":
			fmt.Fprintf(out, "  [%s] %s => %s (dev)\n", id, name, entry.Path)
		case !entry.Repo.IsZero():
			fmt.Fprintf(out, "  [%s] %s tracking %s\n", id, name, entry.Repo.Source)
		default:
			fmt.Fprintf(out, "  [%s] %s\n", id, name)
		}
	}
}
