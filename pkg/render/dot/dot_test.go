package dot

import (
	"context"
	"strings"
	"testing"

	"github.com/ko3luhbka/dephell/pkg/dag"
)

func graph(t *testing.T) *dag.DAG {
	t.Helper()
	g := dag.New(nil)
	for _, n := range []dag.Node{
		{ID: "app", Meta: dag.Metadata{"state": "root"}},
		{ID: "requests", Row: 1, Meta: dag.Metadata{"state": "resolved", "version": "2.31.0", "constraint": ">=2"}},
		{ID: "pysocks", Row: 2, Meta: dag.Metadata{"state": "ignored", "optional": true, "reason": "not found"}},
		{ID: "idna", Row: 2, Meta: dag.Metadata{"state": "conflicted", "constraint": ">=4,<3"}},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []dag.Edge{{From: "app", To: "requests"}, {From: "requests", To: "pysocks"}, {From: "requests", To: "idna"}} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    []string
		notWant []string
	}{
		{
			name: "plain",
			want: []string{
				"rankdir=TB;",
				`"requests" [label="requests 2.31.0"];`,
				`"app" [label="app", style="rounded,filled,bold", fillcolor=lightblue];`,
				`"idna" [label="idna", fillcolor=salmon];`,
				`"requests" -> "pysocks" [style=dashed];`,
				`"app" -> "requests";`,
			},
			notWant: []string{"fontsize=10"},
		},
		{
			name: "detailed",
			opts: Options{Detailed: true, LeftToRight: true},
			want: []string{
				"rankdir=LR;",
				`"app" -> "requests" [label=">=2", fontsize=10];`,
				`label="pysocks\nreason: not found\nstate: ignored"`,
			},
			notWant: []string{"rank=same"},
		},
		{
			name: "same rank",
			opts: Options{SameRank: true},
			want: []string{
				`{ rank=same; "app"; }`,
				`{ rank=same; "idna"; "pysocks"; }`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ToDOT(graph(t), tt.opts)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %s in:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("unexpected %s in:\n%s", w, out)
				}
			}
		})
	}
}

func TestToDOTDeterministic(t *testing.T) {
	if ToDOT(graph(t), Options{}) != ToDOT(graph(t), Options{}) {
		t.Error("ToDOT output differs between runs")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 116.00" width="62" height="116">`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("no viewBox should pass through, got %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz layout is slow")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(graph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "requests") {
		t.Errorf("unexpected SVG output: %.200s", svg)
	}
}
