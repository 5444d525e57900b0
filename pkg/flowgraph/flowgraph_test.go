package flowgraph

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		entry   int
		wantErr error
	}{
		{"single node", 1, 0, nil},
		{"entry in middle", 5, 2, nil},
		{"zero nodes", 0, 0, ErrInvalidNodeCount},
		{"negative count", -1, 0, ErrInvalidNodeCount},
		{"entry negative", 3, -1, ErrEntryOutOfRange},
		{"entry too large", 3, 3, ErrEntryOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.n, tt.entry)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New(%d, %d) error = %v, want %v", tt.n, tt.entry, err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if g.NodeCount() != tt.n {
				t.Errorf("NodeCount() = %d, want %d", g.NodeCount(), tt.n)
			}
			if g.Entry() != tt.entry {
				t.Errorf("Entry() = %d, want %d", g.Entry(), tt.entry)
			}
		})
	}
}

func TestAddEdge(t *testing.T) {
	g, err := New(3, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := g.AddEdge(0, 1); err != nil {
		t.Fatalf("AddEdge(0, 1): %v", err)
	}
	if err := g.AddEdge(1, 2); err != nil {
		t.Fatalf("AddEdge(1, 2): %v", err)
	}

	if err := g.AddEdge(0, 3); !errors.Is(err, ErrNodeOutOfRange) {
		t.Errorf("AddEdge(0, 3) error = %v, want ErrNodeOutOfRange", err)
	}
	if err := g.AddEdge(-1, 0); !errors.Is(err, ErrNodeOutOfRange) {
		t.Errorf("AddEdge(-1, 0) error = %v, want ErrNodeOutOfRange", err)
	}

	if got := g.Succs(0); len(got) != 1 || got[0] != 1 {
		t.Errorf("Succs(0) = %v, want [1]", got)
	}
	if got := g.Preds(2); len(got) != 1 || got[0] != 1 {
		t.Errorf("Preds(2) = %v, want [1]", got)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
	}
}

func TestSuccessorOrder(t *testing.T) {
	// Edge-insertion order must be preserved: the region collector's
	// traversal order is defined in terms of it.
	g, _ := New(4, 0)
	for _, to := range []int{3, 1, 2} {
		if err := g.AddEdge(0, to); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	want := []int{3, 1, 2}
	got := g.Succs(0)
	if len(got) != len(want) {
		t.Fatalf("Succs(0) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Succs(0)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHasEdge(t *testing.T) {
	g, _ := New(3, 0)
	g.AddEdge(0, 1)

	if !g.HasEdge(0, 1) {
		t.Error("HasEdge(0, 1) = false, want true")
	}
	if g.HasEdge(1, 0) {
		t.Error("HasEdge(1, 0) = true, want false")
	}
	if g.HasEdge(-1, 5) {
		t.Error("HasEdge(-1, 5) = true, want false")
	}
}

func TestLabels(t *testing.T) {
	g, _ := New(2, 0)

	if err := g.SetLabel(1, "loop body"); err != nil {
		t.Fatalf("SetLabel: %v", err)
	}
	if got := g.Label(1); got != "loop body" {
		t.Errorf("Label(1) = %q, want %q", got, "loop body")
	}
	if got := g.Label(0); got != "" {
		t.Errorf("Label(0) = %q, want empty", got)
	}
	if got := g.Label(99); got != "" {
		t.Errorf("Label(99) = %q, want empty", got)
	}
	if err := g.SetLabel(2, "x"); !errors.Is(err, ErrNodeOutOfRange) {
		t.Errorf("SetLabel(2) error = %v, want ErrNodeOutOfRange", err)
	}
}

func TestClone(t *testing.T) {
	g, _ := New(3, 1)
	g.AddEdge(1, 0)
	g.AddEdge(1, 2)
	g.SetLabel(2, "exit")

	c := g.Clone()
	c.AddEdge(0, 2)
	c.SetLabel(0, "changed")

	if g.HasEdge(0, 2) {
		t.Error("mutating the clone changed the original's edges")
	}
	if g.Label(0) != "" {
		t.Error("mutating the clone changed the original's labels")
	}
	if c.Entry() != 1 || c.Label(2) != "exit" {
		t.Error("clone did not copy entry or labels")
	}
}
