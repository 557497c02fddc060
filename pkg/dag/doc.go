// Package dag provides the directed graph used to export, render and
// serialize resolved dependency graphs.
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]. Nodes must have unique IDs; edges must connect existing
// nodes:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "app", Row: 0})
//	g.AddNode(dag.Node{ID: "requests", Row: 1})
//	g.AddEdge(dag.Edge{From: "app", To: "requests"})
//
// Query the graph structure with [DAG.Children], [DAG.Parents] and
// [DAG.Sources]. [DAG.Nodes] and [DAG.Edges] return sorted slices, so any
// output built from them is deterministic.
//
// # Cycles
//
// Package metadata may declare cyclic dependencies. The resolver keeps them
// as edges; [DAG.Validate] reports them and the [transform] subpackage
// removes back edges and assigns rows for layered rendering.
//
// # Metadata
//
// Both nodes and the graph itself support arbitrary metadata via [Metadata]
// maps. The resolver stores version, constraint, state and link there.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
//
// [transform]: github.com/ko3luhbka/dephell/pkg/dag/transform
package dag
