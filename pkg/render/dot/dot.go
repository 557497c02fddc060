package dot

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/ko3luhbka/dephell/pkg/dag"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the version and remaining metadata to node labels.
	// When false, labels are "name version".
	Detailed bool

	// LeftToRight lays rows out horizontally instead of top to bottom.
	LeftToRight bool

	// SameRank pins nodes sharing a Row to one rank.
	SameRank bool
}

var stateStyles = map[string][]string{
	"root":        {`style="rounded,filled,bold"`, "fillcolor=lightblue"},
	"conflicted":  {"fillcolor=salmon"},
	"unreachable": {"fillcolor=orange"},
	"ignored":     {`style="rounded,filled,dashed"`, "fillcolor=lightgrey"},
	"pending":     {"fillcolor=lightyellow"},
	"resolving":   {"fillcolor=lightyellow"},
}

// ToDOT converts a graph to Graphviz DOT source. Output is deterministic.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.LeftToRight {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := fmtAttrs(*n, fmtLabel(*n, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	if opts.SameRank {
		writeRanks(&buf, g)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		to, _ := g.Node(e.To)
		var attrs []string
		if c, ok := to.Meta["constraint"].(string); ok && opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=%q", c), "fontsize=10")
		}
		if opt, _ := to.Meta["optional"].(bool); opt {
			attrs = append(attrs, "style=dashed")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeRanks(buf *bytes.Buffer, g *dag.DAG) {
	rows := map[int][]string{}
	for _, n := range g.Nodes() {
		rows[n.Row] = append(rows[n.Row], strconv.Quote(n.ID))
	}
	buf.WriteString("\n")
	for _, row := range slices.Sorted(maps.Keys(rows)) {
		fmt.Fprintf(buf, "  { rank=same; %s; }\n", strings.Join(rows[row], "; "))
	}
}

var labelKeys = map[string]bool{"version": true, "constraint": true, "optional": true}

func fmtLabel(n dag.Node, detailed bool) string {
	label := n.ID
	if v, ok := n.Meta["version"].(string); ok {
		label += " " + v
	}
	if !detailed {
		return label
	}

	var parts []string
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		if labelKeys[k] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n dag.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	state, _ := n.Meta["state"].(string)
	return append(attrs, stateStyles[state]...)
}

// RenderSVG lays out DOT source and returns SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out DOT source and returns a PNG image.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the image scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(root))
}
