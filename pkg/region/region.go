// Package region extracts dominance-closed regions from a flow graph.
//
// A region is the maximal set of nodes reachable from a chosen start node
// via successor edges, restricted to nodes the start node dominates, with
// growth stopped at explicitly marked boundary nodes. Because every member
// is dominated by the start, the whole region can only be entered through
// it - the property that makes it safe to collapse the region into a
// single group without breaking the graph's control structure.
package region

import (
	"errors"
	"fmt"

	"github.com/cfgroup/cfgroup/pkg/dominance"
	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

var (
	// ErrStartOutOfRange is returned by [Collect] when the start node id
	// is outside [0, n).
	ErrStartOutOfRange = errors.New("start node out of range")

	// ErrUniverseMismatch is returned by [Collect] when the dominator sets
	// were solved over a different node universe than the graph. Mixing
	// snapshots would silently gate on stale dominance facts.
	ErrUniverseMismatch = errors.New("dominator sets do not match graph")

	// ErrBoundaryStart is returned by [Collect] when the start node itself
	// carries a boundary marker. Growing a region from a stop node would
	// yield an empty group, so the condition is reported instead of being
	// swallowed as an empty result.
	ErrBoundaryStart = errors.New("start node is marked as a boundary")
)

// Predicate answers whether a node is a designated stop point for region
// growth. It may be expensive (an annotation lookup); [Collect] evaluates
// it at most once per node per collection.
type Predicate func(node int) bool

// Collect computes the dominance-closed region reachable from start.
//
// Traversal is depth-first in successor-list order using an explicit
// stack, so the recursion depth never scales with the graph. A node is
// entered only once; combined with the finite node count this guarantees
// termination on cyclic graphs. Boundary nodes are never added to the
// region and never expanded.
//
// The returned slice lists the region in discovery order, starting with
// start, with every node appearing exactly once.
func Collect(g flowgraph.View, doms *dominance.Sets, isBoundary Predicate, start int) ([]int, error) {
	n := g.NodeCount()
	if start < 0 || start >= n {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrStartOutOfRange, start, n)
	}
	if doms.NodeCount() != n {
		return nil, fmt.Errorf("%w: solved over %d nodes, graph has %d", ErrUniverseMismatch, doms.NodeCount(), n)
	}

	boundary := memoize(isBoundary, n)
	if boundary(start) {
		return nil, ErrBoundaryStart
	}

	members := make([]int, 0, 8)
	seen := make([]bool, n)
	seen[start] = true
	stack := []int{start}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if boundary(v) {
			// Stop markers terminate growth: not collected, not expanded.
			continue
		}
		members = append(members, v)

		succs := g.Succs(v)
		// Push in reverse so successors are entered in list order.
		for i := len(succs) - 1; i >= 0; i-- {
			s := succs[i]
			if !seen[s] && doms.Dominates(start, s) {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}

	return members, nil
}

// memoize caches predicate answers so external lookups run at most once
// per node per collection.
func memoize(p Predicate, n int) Predicate {
	const (
		unknown = iota
		falsy
		truthy
	)
	cache := make([]int8, n)
	return func(node int) bool {
		switch cache[node] {
		case truthy:
			return true
		case falsy:
			return false
		}
		if p(node) {
			cache[node] = truthy
			return true
		}
		cache[node] = falsy
		return false
	}
}
