// Package group materializes collected regions as single collapsed nodes.
//
// Collapsing rewrites the host graph: region members disappear, one new
// labeled group node takes their place, and every edge crossing the
// region boundary is re-pointed at the group node. The input graph is
// never mutated; callers get a fresh graph plus the group node's id.
package group

import (
	"errors"
	"fmt"

	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

var (
	// ErrEmptyLabel is returned by [Collapse] when the group label is
	// empty. A group must be identifiable once its members are hidden.
	ErrEmptyLabel = errors.New("group label must not be empty")

	// ErrEmptyRegion is returned by [Collapse] when the region has no
	// members. Creating a zero-node group is always a caller bug.
	ErrEmptyRegion = errors.New("group region must not be empty")

	// ErrNodeOutOfRange is returned by [Collapse] when a region member is
	// not a valid node id of the host graph.
	ErrNodeOutOfRange = errors.New("region node out of range")

	// ErrDuplicateNode is returned by [Collapse] when the region lists the
	// same node twice.
	ErrDuplicateNode = errors.New("duplicate node in region")
)

// Collapse replaces the region in g with a single group node labeled
// label and returns the rewritten graph together with the group node's id
// in it.
//
// Surviving nodes keep their relative order and are renumbered densely;
// the group node always receives the highest id. Edges internal to the
// region vanish; edges crossing the region boundary are re-pointed at the
// group node and deduplicated. If the region contains the entry, the
// group node becomes the new entry.
func Collapse(g *flowgraph.Graph, members []int, label string) (*flowgraph.Graph, int, error) {
	if label == "" {
		return nil, 0, ErrEmptyLabel
	}
	if len(members) == 0 {
		return nil, 0, ErrEmptyRegion
	}

	n := g.NodeCount()
	inRegion := make([]bool, n)
	for _, v := range members {
		if v < 0 || v >= n {
			return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrNodeOutOfRange, v, n)
		}
		if inRegion[v] {
			return nil, 0, fmt.Errorf("%w: %d", ErrDuplicateNode, v)
		}
		inRegion[v] = true
	}

	// Dense renumbering: survivors first in ascending id order, the group
	// node last.
	mapped := make([]int, n)
	next := 0
	for v := 0; v < n; v++ {
		if inRegion[v] {
			continue
		}
		mapped[v] = next
		next++
	}
	groupID := next
	for v := 0; v < n; v++ {
		if inRegion[v] {
			mapped[v] = groupID
		}
	}

	entry := mapped[g.Entry()]
	out, err := flowgraph.New(groupID+1, entry)
	if err != nil {
		return nil, 0, err
	}

	for v := 0; v < n; v++ {
		if !inRegion[v] {
			if err := out.SetLabel(mapped[v], g.Label(v)); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := out.SetLabel(groupID, label); err != nil {
		return nil, 0, err
	}

	for v := 0; v < n; v++ {
		for _, s := range g.Succs(v) {
			from, to := mapped[v], mapped[s]
			if from == groupID && to == groupID {
				// Edge internal to the region.
				continue
			}
			if out.HasEdge(from, to) {
				continue
			}
			if err := out.AddEdge(from, to); err != nil {
				return nil, 0, err
			}
		}
	}

	return out, groupID, nil
}
