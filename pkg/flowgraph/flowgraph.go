// Package flowgraph provides the directed graph model consumed by the
// dominance and region analyses.
//
// Nodes are dense integer ids in [0, n) with a single distinguished entry
// node. The package offers a mutable [Graph] for construction and a
// read-only [View] interface that the analysis packages accept, so callers
// can plug in their own graph representation without copying.
package flowgraph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNodeCount is returned by [New] when the node count is not
	// positive. A graph needs at least its entry node.
	ErrInvalidNodeCount = errors.New("node count must be positive")

	// ErrEntryOutOfRange is returned by [New] when the entry node id is
	// outside [0, n).
	ErrEntryOutOfRange = errors.New("entry node out of range")

	// ErrNodeOutOfRange is returned by mutating operations when a node id
	// is outside [0, n).
	ErrNodeOutOfRange = errors.New("node id out of range")
)

// View is the read-only graph contract required by the analysis packages.
// Implementations must return stable results for the duration of one
// solve+collect cycle; the analyses never mutate the graph.
type View interface {
	// NodeCount returns the number of nodes n. Node ids are 0..n-1.
	NodeCount() int

	// Entry returns the id of the distinguished entry node.
	Entry() int

	// Succs returns the successor ids of v in edge-insertion order.
	// The returned slice must be treated as read-only.
	Succs(v int) []int

	// Preds returns the predecessor ids of v in edge-insertion order.
	// The returned slice must be treated as read-only.
	Preds(v int) []int
}

// Graph is a mutable directed graph over a fixed set of integer nodes.
// The node count and entry are fixed at construction; edges and labels
// can be added afterwards.
//
// The zero value is not usable - use [New] to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	entry  int
	succs  [][]int
	preds  [][]int
	labels []string
}

// New creates a graph with n nodes (ids 0..n-1) and the given entry node.
// Returns ErrInvalidNodeCount if n < 1 or ErrEntryOutOfRange if entry is
// not a valid node id.
func New(n, entry int) (*Graph, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, n)
	}
	if entry < 0 || entry >= n {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrEntryOutOfRange, entry, n)
	}
	return &Graph{
		entry:  entry,
		succs:  make([][]int, n),
		preds:  make([][]int, n),
		labels: make([]string, n),
	}, nil
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.succs) }

// Entry returns the id of the entry node.
func (g *Graph) Entry() int { return g.entry }

// Succs returns the successors of v in edge-insertion order.
// The returned slice is a view into the graph and must not be modified.
func (g *Graph) Succs(v int) []int { return g.succs[v] }

// Preds returns the predecessors of v in edge-insertion order.
// The returned slice is a view into the graph and must not be modified.
func (g *Graph) Preds(v int) []int { return g.preds[v] }

// AddEdge adds a directed edge from → to. Parallel edges are allowed but
// unusual; use [Graph.HasEdge] to guard against them when they matter.
// Returns ErrNodeOutOfRange if either endpoint is not a valid node id.
func (g *Graph) AddEdge(from, to int) error {
	if err := g.checkNode(from); err != nil {
		return err
	}
	if err := g.checkNode(to); err != nil {
		return err
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
	return nil
}

// HasEdge reports whether an edge from → to exists.
// Returns false for out-of-range ids.
func (g *Graph) HasEdge(from, to int) bool {
	if from < 0 || from >= len(g.succs) {
		return false
	}
	return slices.Contains(g.succs[from], to)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, s := range g.succs {
		total += len(s)
	}
	return total
}

// Label returns the display label of v, or the empty string if none is set.
func (g *Graph) Label(v int) string {
	if v < 0 || v >= len(g.labels) {
		return ""
	}
	return g.labels[v]
}

// SetLabel sets the display label of v.
// Returns ErrNodeOutOfRange if v is not a valid node id.
func (g *Graph) SetLabel(v int, label string) error {
	if err := g.checkNode(v); err != nil {
		return err
	}
	g.labels[v] = label
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		entry:  g.entry,
		succs:  make([][]int, len(g.succs)),
		preds:  make([][]int, len(g.preds)),
		labels: slices.Clone(g.labels),
	}
	for v := range g.succs {
		c.succs[v] = slices.Clone(g.succs[v])
		c.preds[v] = slices.Clone(g.preds[v])
	}
	return c
}

func (g *Graph) checkNode(v int) error {
	if v < 0 || v >= len(g.succs) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrNodeOutOfRange, v, len(g.succs))
	}
	return nil
}

// Compile-time check that Graph satisfies the analysis contract.
var _ View = (*Graph)(nil)
