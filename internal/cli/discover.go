package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/pkg/discover"
)

// discoverCommand creates the discover command.
func (c *CLI) discoverCommand() *cobra.Command {
	var (
		name   string
		ignore []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "discover [dir]",
		Short: "Find the Python packages and data files of a source tree",
		Long: `Discover walks a source tree and lists every package (a directory with
__init__.py whose parents are packages too) and the glob patterns of the
non-code files each package owns, in the shape setup.py expects for
packages and package_data.`,
		Example: `  dephell discover src --name myproject
  dephell discover --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			opts := discover.Options{Name: name}
			if len(ignore) > 0 {
				opts.Ignore = append(append([]string{}, discover.DefaultIgnore...), ignore...)
			}
			tree, err := discover.Discover(root, opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(discoverJSON{Packages: tree.Modules(), PackageData: tree.Globs()})
			}
			if tree.IsZero() {
				printInfo("No packages found in %s", root)
				return nil
			}
			fmt.Fprintln(w, StyleTitle.Render("packages"))
			for _, m := range tree.Modules() {
				fmt.Fprintln(w, "  "+m)
			}
			if globs := tree.Globs(); len(globs) > 0 {
				fmt.Fprintln(w, StyleTitle.Render("package data"))
				for _, g := range globs {
					fmt.Fprintf(w, "  %s: %s\n", g.Module, strings.Join(g.Patterns, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "prefix every module with this package name")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "extra directory names or patterns to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

type discoverJSON struct {
	Packages    []string             `json:"packages"`
	PackageData []discover.DataGlobs `json:"package_data"`
}
