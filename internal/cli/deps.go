package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

// depsCommand creates the deps command group.
func (c *CLI) depsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect project dependencies",
	}
	cmd.AddCommand(c.depsListCommand())
	cmd.AddCommand(c.depsTreeCommand())
	return cmd
}

// depsListCommand prints the direct dependencies as written in the file.
func (c *CLI) depsListCommand() *cobra.Command {
	var flags endpointFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the direct dependencies of a project file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings()
			if err != nil {
				return err
			}
			from, _, err := c.endpoints(cfg, flags.env, flags.from, "")
			if err != nil {
				return err
			}
			_, project, err := c.load(cmd, from)
			if err != nil {
				return err
			}
			writeProject(cmd.OutOrStdout(), project)
			return nil
		},
	}
	flags.register(cmd, "")
	return cmd
}

func writeProject(w io.Writer, p *models.Project) {
	if p.Name != "" {
		printKeyValue(w, "name", p.Name)
	}
	if p.Version != "" {
		printKeyValue(w, "version", p.Version)
	}
	if p.Python != "" {
		printKeyValue(w, "python", p.Python)
	}
	for _, r := range p.Dependencies {
		line := r.String()
		if r.Optional {
			line += StyleDim.Render(" (optional)")
		}
		fmt.Fprintln(w, line)
	}
}

// depsTreeCommand resolves a project and prints its dependency tree.
func (c *CLI) depsTreeCommand() *cobra.Command {
	var (
		flags endpointFlags
		depth int
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Resolve a project and print its dependency tree",
		Long: `Tree resolves a project and prints every package under the packages that
require it, with the chosen version and the constraint that selected it.

A package already printed higher up is shown once more marked "(*)" without
its children. When resolution fails the partial tree is still printed, with
conflicted and unreachable packages highlighted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings()
			if err != nil {
				return err
			}
			from, _, err := c.endpoints(cfg, flags.env, flags.from, "")
			if err != nil {
				return err
			}

			spinner := newSpinner(cmd.Context(), "Resolving dependencies...")
			spinner.Start()
			r, release, err := c.resolver(cmd, cfg, from)
			spinner.Stop()
			if r == nil {
				return err
			}
			defer release()

			writeTree(cmd.OutOrStdout(), r.Graph(), depth)
			if err != nil {
				printResolveFailure(err)
			}
			return err
		},
	}
	flags.register(cmd, "")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "maximum depth to print (0 = unlimited)")
	return cmd
}

// writeTree prints g below its root. Children are sorted by name.
func writeTree(w io.Writer, g *resolver.Graph, maxDepth int) {
	nodes := make(map[string]resolver.Node)
	children := make(map[string][]string)
	for _, n := range g.Nodes() {
		nodes[n.Name] = n
		for _, p := range n.Requirement.Parents {
			children[p] = append(children[p], n.Name)
		}
	}
	for _, names := range children {
		slices.Sort(names)
	}

	fmt.Fprintln(w, StyleTitle.Render(g.Root()))
	seen := map[string]bool{g.Root(): true}
	var walk func(parent, prefix string, depth int)
	walk = func(parent, prefix string, depth int) {
		kids := children[parent]
		for i, name := range kids {
			branch, indent := "├── ", "│   "
			if i == len(kids)-1 {
				branch, indent = "└── ", "    "
			}
			n := nodes[name]
			line := treeLabel(n)
			if seen[name] {
				fmt.Fprintln(w, prefix+branch+line+StyleDim.Render(" (*)"))
				continue
			}
			fmt.Fprintln(w, prefix+branch+line)
			if maxDepth > 0 && depth >= maxDepth {
				continue
			}
			seen[name] = true
			walk(name, prefix+indent, depth+1)
		}
	}
	walk(g.Root(), "", 1)
}

func treeLabel(n resolver.Node) string {
	var b strings.Builder
	b.WriteString(n.Name)
	if n.Version != "" {
		b.WriteString(" " + n.Version)
	}
	if !n.Requirement.Constraint.IsAny() {
		b.WriteString(StyleDim.Render(" [" + n.Requirement.Constraint.String() + "]"))
	}
	label := b.String()
	if n.State != resolver.Resolved {
		label += " " + n.State.String()
		if n.Reason != "" {
			label += ": " + n.Reason
		}
	}
	if style, ok := stateStyles[n.State]; ok && n.State != resolver.Resolved {
		return style.Render(label)
	}
	return label
}
