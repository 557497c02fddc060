// Package transform provides graph transformations applied to resolved
// dependency graphs before they are rendered or exported.
//
// Package metadata may declare cycles (a test extra that depends back on
// its parent is common). [BackEdges] lists the edges that close them,
// [BreakCycles] removes those edges, and [AssignLayers] places every node
// on the row below its deepest dependent:
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
package transform
