// Package dot renders resolved dependency graphs as node-link diagrams.
//
// [ToDOT] emits Graphviz DOT source from a dag.DAG produced by the
// resolver; node fill encodes the resolution state (conflicted red,
// unreachable orange, ignored dashed grey, pending yellow) and optional
// dependencies get dashed edges. [RenderSVG] and [RenderPNG] lay the DOT
// out in-process with [github.com/goccy/go-graphviz], so no Graphviz
// installation is needed.
//
//	d := dot.ToDOT(r.Graph().DAG(), dot.Options{Detailed: true})
//	svg, err := dot.RenderSVG(ctx, d)
package dot
