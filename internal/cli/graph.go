package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/pkg/dag"
	"github.com/ko3luhbka/dephell/pkg/dag/transform"
	derrors "github.com/ko3luhbka/dephell/pkg/errors"
	dio "github.com/ko3luhbka/dephell/pkg/io"
	"github.com/ko3luhbka/dephell/pkg/render/dot"
)

// Graph output formats.
const (
	graphJSON = "json"
	graphDOT  = "dot"
	graphSVG  = "svg"
	graphPNG  = "png"
)

var graphFormats = []string{graphJSON, graphDOT, graphSVG, graphPNG}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		flags    endpointFlags
		format   string
		output   string
		detailed bool
		lr       bool
		layered  bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Resolve a project and export its dependency graph",
		Long: `Graph resolves a project and writes the dependency graph as JSON, Graphviz DOT,
SVG or PNG. Nodes carry their resolution state, so a graph of a failed
resolution shows where the conflict is.

Without --format the format is taken from the output file extension.
--layered breaks dependency cycles and places every package one row below
its deepest dependent instead of at its resolution depth.`,
		Example: `  dephell graph --from pyproject.toml -o deps.svg
  dephell graph --from requirements.txt --format dot --detailed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = graphFormat(format, output)
			if err := derrors.ValidateFormat(format, graphFormats); err != nil {
				return err
			}
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
			r, release, buildErr := c.resolver(cmd, cfg, from)
			spinner.Stop()
			if r == nil {
				return buildErr
			}
			defer release()
			if buildErr != nil {
				printWarning("Resolution incomplete, exporting partial graph")
				printResolveFailure(buildErr)
			}

			g := r.Graph().DAG()
			if layered {
				if n := transform.BreakCycles(g); n > 0 {
					printWarning("Removed %d cycle edge(s)", n)
				}
				transform.AssignLayers(g)
			}
			data, err := encodeGraph(cmd, g, format, dot.Options{Detailed: detailed, LeftToRight: lr, SameRank: layered})
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, output, data); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("graph exported", "nodes", g.NodeCount(), "edges", g.EdgeCount(), "format", format)
			return buildErr
		},
	}

	flags.register(cmd, "")
	cmd.Flags().StringVar(&format, "format", "", "output format: "+strings.Join(graphFormats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show constraints, links and reasons")
	cmd.Flags().BoolVar(&lr, "lr", false, "lay the graph out left to right")
	cmd.Flags().BoolVar(&layered, "layered", false, "break cycles and rank packages by longest dependency path")
	return cmd
}

// graphFormat defaults the format from the output extension, then to JSON.
func graphFormat(format, output string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return graphJSON
}

func encodeGraph(cmd *cobra.Command, g *dag.DAG, format string, opts dot.Options) ([]byte, error) {
	switch format {
	case graphJSON:
		var buf bytes.Buffer
		if err := dio.WriteJSON(g, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case graphDOT:
		return []byte(dot.ToDOT(g, opts)), nil
	case graphSVG:
		return dot.RenderSVG(cmd.Context(), dot.ToDOT(g, opts))
	case graphPNG:
		return dot.RenderPNG(cmd.Context(), dot.ToDOT(g, opts))
	}
	return nil, fmt.Errorf("unknown graph format %q", format)
}
