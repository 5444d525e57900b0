package nodelink

import (
	"strings"
	"testing"

	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

func sample(t *testing.T) *flowgraph.Graph {
	t.Helper()
	g, err := flowgraph.New(3, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.SetLabel(0, "entry")
	g.SetLabel(1, "check")
	return g
}

func TestToDOTBasic(t *testing.T) {
	dot := ToDOT(sample(t), Options{})

	for _, want := range []string{
		"digraph G {",
		`n0 [label="entry"]`,
		`n1 [label="check"]`,
		`n2 [label="2"]`, // unlabeled nodes fall back to their id
		"n0 -> n1;",
		"n1 -> n2;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTRegionHighlight(t *testing.T) {
	dot := ToDOT(sample(t), Options{Region: []int{1, 2}})

	if !strings.Contains(dot, `n1 [label="check", fillcolor=lightblue, penwidth=3]`) {
		t.Errorf("start node not emphasized:\n%s", dot)
	}
	if !strings.Contains(dot, `n2 [label="2", fillcolor=lightblue]`) {
		t.Errorf("region member not filled:\n%s", dot)
	}
	if strings.Contains(dot, `n0 [label="entry", fillcolor=lightblue`) {
		t.Errorf("non-member filled as region:\n%s", dot)
	}
}

func TestToDOTBoundaryShape(t *testing.T) {
	dot := ToDOT(sample(t), Options{Boundary: func(v int) bool { return v == 2 }})

	if !strings.Contains(dot, "n2 [label=\"2\", shape=octagon, fillcolor=mistyrose]") {
		t.Errorf("boundary node not drawn as octagon:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sample(t), Options{Detailed: true})

	if !strings.Contains(dot, `label="entry\n#0"`) {
		t.Errorf("detailed label missing node id:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<?xml version="1.0"?>` + "\n" +
		`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg">` +
		`<g></g></svg>`)

	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00"`) {
		t.Errorf("viewBox not normalized: %s", out)
	}
	if strings.Contains(out, "100pt") {
		t.Errorf("point-based dimensions survived: %s", out)
	}
}

func TestNormalizeViewBoxPassthrough(t *testing.T) {
	in := []byte("<svg><g/></svg>")
	if got := string(normalizeViewBox(in)); got != string(in) {
		t.Errorf("SVG without viewBox was modified: %s", got)
	}
}
