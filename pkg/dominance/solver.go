// Package dominance computes full dominator sets for directed graphs with
// a single entry node.
//
// Node u dominates node v when every path from the graph's entry to v
// passes through u. The solver runs the classic iterative bit-vector
// dataflow fixpoint: every non-entry node starts with the universal set
// and is repeatedly intersected with its predecessors' sets until nothing
// changes. The sets only shrink and are bounded below by {v}, so the
// fixpoint is reached in at most O(n) passes.
//
// Nodes unreachable from the entry keep the universal set. That is a
// degenerate "dominated by everything" marker, not a meaningful dominance
// fact; callers gating on [Sets.Dominates] should be aware of it.
package dominance

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

var (
	// ErrEmptyGraph is returned by [Solve] when the graph has no nodes.
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrEntryOutOfRange is returned by [Solve] when the graph's entry id
	// is outside [0, n). Solving with a bogus entry would silently produce
	// wrong dominator sets, so it is rejected up front.
	ErrEntryOutOfRange = errors.New("entry node out of range")
)

// Sets holds the converged dominator sets of one graph: one bit-set per
// node, where bit u of set v means "u dominates v".
//
// Sets is immutable after [Solve] returns and safe to share read-only
// across any number of region collections over the same graph snapshot.
type Sets struct {
	n      int
	entry  int
	passes int
	doms   []bitset
}

// Solve computes dominator sets for every node of g.
//
// The fixpoint iterates in node-id order; enumeration order affects only
// convergence speed, never the result. Within a pass the intersection for
// a node accumulates across its predecessors in place, which is safe
// because intersection is monotone decreasing.
func Solve(g flowgraph.View) (*Sets, error) {
	n := g.NodeCount()
	if n < 1 {
		return nil, ErrEmptyGraph
	}
	entry := g.Entry()
	if entry < 0 || entry >= n {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrEntryOutOfRange, entry, n)
	}

	doms := make([]bitset, n)
	for v := range doms {
		doms[v] = newBitset(n)
		doms[v].fill(n)
	}
	doms[entry].clearAll()
	doms[entry].set(entry)

	passes := 0
	for changed := true; changed; {
		changed = false
		passes++
		for v := 0; v < n; v++ {
			if v == entry {
				continue
			}
			for _, p := range g.Preds(v) {
				if doms[v].intersectKeep(doms[p], v) {
					changed = true
				}
			}
		}
	}

	return &Sets{n: n, entry: entry, passes: passes, doms: doms}, nil
}

// NodeCount returns the size of the node universe the sets were solved over.
func (s *Sets) NodeCount() int { return s.n }

// Entry returns the entry node the sets were solved from.
func (s *Sets) Entry() int { return s.entry }

// Passes returns the number of fixpoint passes the solver needed,
// including the final pass that observed no change.
func (s *Sets) Passes() int { return s.passes }

// Dominates reports whether u dominates v. Every node dominates itself.
//
// The test is a single bit lookup. Both ids must be in [0, n); anything
// else is a caller bug and panics rather than returning a silently wrong
// answer. Note that nodes unreachable from the entry are reported as
// dominated by every node (see the package comment).
func (s *Sets) Dominates(u, v int) bool {
	s.check(u)
	s.check(v)
	return s.doms[v].test(u)
}

// Dominators returns the ids of all nodes dominating v in ascending order.
// Panics if v is outside [0, n).
func (s *Sets) Dominators(v int) []int {
	s.check(v)
	return s.doms[v].members()
}

func (s *Sets) check(id int) {
	if id < 0 || id >= s.n {
		panic(fmt.Sprintf("dominance: node id %d out of range [0, %d)", id, s.n))
	}
}

// setsDoc is the serialization form of Sets, used for content-addressed
// caching of solve results.
type setsDoc struct {
	N      int        `json:"n"`
	Entry  int        `json:"entry"`
	Passes int        `json:"passes"`
	Words  [][]uint64 `json:"words"`
}

// MarshalJSON encodes the converged sets so they can be cached and
// restored without re-solving.
func (s *Sets) MarshalJSON() ([]byte, error) {
	doc := setsDoc{N: s.n, Entry: s.entry, Passes: s.passes, Words: make([][]uint64, len(s.doms))}
	for v, d := range s.doms {
		doc.Words[v] = d
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores sets produced by [Sets.MarshalJSON].
// The encoded universe is validated for shape consistency.
func (s *Sets) UnmarshalJSON(data []byte) error {
	var doc setsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.N < 1 || doc.Entry < 0 || doc.Entry >= doc.N || len(doc.Words) != doc.N {
		return fmt.Errorf("invalid dominator set encoding: n=%d entry=%d sets=%d", doc.N, doc.Entry, len(doc.Words))
	}
	words := (doc.N + wordBits - 1) / wordBits
	doms := make([]bitset, doc.N)
	for v, w := range doc.Words {
		if len(w) != words {
			return fmt.Errorf("invalid dominator set encoding: set %d has %d words, want %d", v, len(w), words)
		}
		doms[v] = bitset(w)
	}
	s.n = doc.N
	s.entry = doc.Entry
	s.passes = doc.Passes
	s.doms = doms
	return nil
}
