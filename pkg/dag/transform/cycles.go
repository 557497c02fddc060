package transform

import (
	"slices"

	"github.com/ko3luhbka/dephell/pkg/dag"
)

// BackEdges returns the edges that close a cycle when the graph is walked
// depth-first from its sources in ID order. Children are visited in sorted
// order, so the result is stable for a given graph.
func BackEdges(g *dag.DAG) [][2]string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var backEdges [][2]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		children := slices.Clone(g.Children(node))
		slices.Sort(children)
		for _, child := range children {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				backEdges = append(backEdges, [2]string{node, child})
			}
		}
		color[node] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	// Nodes reachable only through a cycle have no source above them.
	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}
	return backEdges
}

// BreakCycles removes every back edge found by [BackEdges] and returns how
// many were removed. The graph is acyclic afterwards.
func BreakCycles(g *dag.DAG) int {
	backEdges := BackEdges(g)
	for _, e := range backEdges {
		g.RemoveEdge(e[0], e[1])
	}
	return len(backEdges)
}
