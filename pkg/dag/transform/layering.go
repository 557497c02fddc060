package transform

import "github.com/ko3luhbka/dephell/pkg/dag"

// AssignLayers assigns nodes to rows based on their longest path from a
// source.
//
// AssignLayers uses Kahn's topological sort. Each node is placed at one plus
// the maximum row of any of its parents, so:
//   - Source nodes (no incoming edges) are at row 0
//   - All dependents are strictly above their dependencies
//
// Existing row assignments are overwritten. Nodes on a cycle never reach
// zero in-degree and stay at row 0; run [BreakCycles] first.
func AssignLayers(g *dag.DAG) {
	nodes := g.Nodes()
	inDegree := make(map[string]int, len(nodes))
	rows := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, n := range nodes {
		rows[n.ID] = 0
		degree := g.InDegree(n.ID)
		inDegree[n.ID] = degree
		if degree == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range g.Children(curr) {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	g.SetRows(rows)
}
