package transform

import (
	"testing"

	"github.com/ko3luhbka/dephell/pkg/dag"
)

func TestAssignLayers(t *testing.T) {
	// project → requests → urllib3
	// project → urllib3
	g := dag.New(nil)
	for _, id := range []string{"project", "requests", "urllib3", "idna"} {
		g.AddNode(dag.Node{ID: id, Row: 7})
	}
	g.AddEdge(dag.Edge{From: "project", To: "requests"})
	g.AddEdge(dag.Edge{From: "project", To: "urllib3"})
	g.AddEdge(dag.Edge{From: "requests", To: "urllib3"})
	g.AddEdge(dag.Edge{From: "requests", To: "idna"})

	AssignLayers(g)

	want := map[string]int{"project": 0, "requests": 1, "urllib3": 2, "idna": 2}
	for id, row := range want {
		n, _ := g.Node(id)
		if n.Row != row {
			t.Errorf("%s.Row = %d, want %d", id, n.Row, row)
		}
	}
}

func TestAssignLayers_AfterBreakCycles(t *testing.T) {
	g := dag.New(nil)
	g.AddNode(dag.Node{ID: "a"})
	g.AddNode(dag.Node{ID: "b"})
	g.AddNode(dag.Node{ID: "c"})
	g.AddEdge(dag.Edge{From: "a", To: "b"})
	g.AddEdge(dag.Edge{From: "b", To: "c"})
	g.AddEdge(dag.Edge{From: "c", To: "b"})

	BreakCycles(g)
	AssignLayers(g)

	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if got := g.MaxRow(); got != 2 {
		t.Errorf("MaxRow() = %d, want 2", got)
	}
}
