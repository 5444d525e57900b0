package group

import (
	"errors"
	"testing"

	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

func build(t *testing.T, n, entry int, edges [][2]int) *flowgraph.Graph {
	t.Helper()
	g, err := flowgraph.New(n, entry)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", n, entry, err)
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestCollapseMidRegion(t *testing.T) {
	// 0 → 1 → 2 → 3 with region {1, 2}: survivors 0 and 3 keep relative
	// order, the group node is appended, and the crossing edges collapse
	// onto it.
	g := build(t, 4, 0, [][2]int{{0, 1}, {1, 2}, {2, 3}})
	g.SetLabel(3, "exit")

	out, groupID, err := Collapse(g, []int{1, 2}, "validation")
	if err != nil {
		t.Fatalf("Collapse: %v", err)
	}

	if out.NodeCount() != 3 {
		t.Fatalf("NodeCount() = %d, want 3", out.NodeCount())
	}
	if groupID != 2 {
		t.Errorf("groupID = %d, want 2", groupID)
	}
	if out.Entry() != 0 {
		t.Errorf("Entry() = %d, want 0", out.Entry())
	}
	if out.Label(groupID) != "validation" {
		t.Errorf("group label = %q, want %q", out.Label(groupID), "validation")
	}
	if out.Label(1) != "exit" {
		t.Errorf("surviving label = %q, want %q", out.Label(1), "exit")
	}

	// 0 → group → old 3 (now id 1).
	if !out.HasEdge(0, groupID) || !out.HasEdge(groupID, 1) {
		t.Errorf("expected edges 0 → %d → 1 after collapse", groupID)
	}
	if out.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", out.EdgeCount())
	}
}

func TestCollapseDeduplicatesCrossingEdges(t *testing.T) {
	// Both 1 and 2 exit to 3: the two crossing edges must fold into one
	// group → 3 edge.
	g := build(t, 4, 0, [][2]int{{0, 1}, {1, 2}, {1, 3}, {2, 3}})

	out, groupID, err := Collapse(g, []int{1, 2}, "body")
	if err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	if out.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2 (0 → group, group → 3)", out.EdgeCount())
	}
	if !out.HasEdge(groupID, 1) {
		t.Error("missing deduplicated group → exit edge")
	}
}

func TestCollapseDropsInternalEdges(t *testing.T) {
	// A loop entirely inside the region leaves no self-loop behind.
	g := build(t, 4, 0, [][2]int{{0, 1}, {1, 2}, {2, 1}, {2, 3}})

	out, groupID, err := Collapse(g, []int{1, 2}, "loop")
	if err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	if out.HasEdge(groupID, groupID) {
		t.Error("internal region edges must not become self-loops")
	}
}

func TestCollapseEntryInRegion(t *testing.T) {
	g := build(t, 3, 0, [][2]int{{0, 1}, {1, 2}})

	out, groupID, err := Collapse(g, []int{0, 1}, "prologue")
	if err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	if out.Entry() != groupID {
		t.Errorf("Entry() = %d, want group node %d", out.Entry(), groupID)
	}
}

func TestCollapseKeepsBackEdgeIntoGroup(t *testing.T) {
	// 3 loops back to the region's start: the edge must survive as
	// 3 → group.
	g := build(t, 4, 0, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 1}})

	out, groupID, err := Collapse(g, []int{1, 2}, "body")
	if err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	// Old node 3 is survivor id 1.
	if !out.HasEdge(1, groupID) {
		t.Error("back edge into the region was lost")
	}
}

func TestCollapseInputUnchanged(t *testing.T) {
	g := build(t, 3, 0, [][2]int{{0, 1}, {1, 2}})

	if _, _, err := Collapse(g, []int{1}, "x"); err != nil {
		t.Fatalf("Collapse: %v", err)
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Error("Collapse mutated its input graph")
	}
}

func TestCollapseValidation(t *testing.T) {
	g := build(t, 3, 0, [][2]int{{0, 1}, {1, 2}})

	tests := []struct {
		name    string
		members []int
		label   string
		wantErr error
	}{
		{"empty label", []int{1}, "", ErrEmptyLabel},
		{"empty region", nil, "x", ErrEmptyRegion},
		{"node out of range", []int{1, 9}, "x", ErrNodeOutOfRange},
		{"negative node", []int{-1}, "x", ErrNodeOutOfRange},
		{"duplicate node", []int{1, 1}, "x", ErrDuplicateNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Collapse(g, tt.members, tt.label); !errors.Is(err, tt.wantErr) {
				t.Errorf("Collapse error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
