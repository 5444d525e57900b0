// Package annotate stores free-text comments attached to flow graph nodes
// and derives boundary predicates from marker substrings.
//
// Region growth stops at nodes whose comment contains a marker string
// (by default [DefaultMarker]). The marker syntax lives entirely in this
// package: the region collector only ever sees a boolean predicate.
//
// Annotations persist as a small TOML document:
//
//	[[node]]
//	id = 7
//	comment = "GG:stop loop exit"
package annotate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cfgroup/cfgroup/pkg/region"
)

// DefaultMarker is the comment substring that marks a node as a region
// boundary.
const DefaultMarker = "GG:stop"

var (
	// ErrInvalidNode is returned when an annotation references a negative
	// node id.
	ErrInvalidNode = errors.New("annotation node id must not be negative")

	// ErrEmptyMarker is returned by marker operations given an empty
	// marker string: an empty substring would match every comment.
	ErrEmptyMarker = errors.New("marker must not be empty")
)

// Annotations holds per-node comments. The zero value is not usable -
// use [New] or [Load].
type Annotations struct {
	comments map[int]string
}

// New creates an empty annotation store.
func New() *Annotations {
	return &Annotations{comments: make(map[int]string)}
}

// Comment returns the comment attached to node id, and whether one exists.
func (a *Annotations) Comment(id int) (string, bool) {
	c, ok := a.comments[id]
	return c, ok
}

// Set attaches a comment to node id, replacing any existing one.
// Setting an empty comment removes the annotation.
func (a *Annotations) Set(id int, comment string) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	if comment == "" {
		delete(a.comments, id)
		return nil
	}
	a.comments[id] = comment
	return nil
}

// Clear removes the comment attached to node id, if any.
func (a *Annotations) Clear(id int) {
	delete(a.comments, id)
}

// Len returns the number of annotated nodes.
func (a *Annotations) Len() int { return len(a.comments) }

// Nodes returns the annotated node ids in ascending order.
func (a *Annotations) Nodes() []int {
	ids := make([]int, 0, len(a.comments))
	for id := range a.comments {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// HasMarker reports whether node id carries the marker substring in its
// comment.
func (a *Annotations) HasMarker(id int, marker string) bool {
	if marker == "" {
		return false
	}
	c, ok := a.comments[id]
	return ok && strings.Contains(c, marker)
}

// Mark appends the marker to node id's comment unless it is already
// present. An unannotated node gets the marker as its whole comment.
func (a *Annotations) Mark(id int, marker string) error {
	if marker == "" {
		return ErrEmptyMarker
	}
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	if a.HasMarker(id, marker) {
		return nil
	}
	if c, ok := a.comments[id]; ok {
		a.comments[id] = c + " " + marker
	} else {
		a.comments[id] = marker
	}
	return nil
}

// Unmark removes the marker substring from node id's comment. A comment
// left empty disappears entirely.
func (a *Annotations) Unmark(id int, marker string) error {
	if marker == "" {
		return ErrEmptyMarker
	}
	c, ok := a.comments[id]
	if !ok {
		return nil
	}
	c = strings.TrimSpace(strings.ReplaceAll(c, marker, ""))
	c = strings.Join(strings.Fields(c), " ")
	if c == "" {
		delete(a.comments, id)
	} else {
		a.comments[id] = c
	}
	return nil
}

// Boundary builds a region predicate that answers true for nodes whose
// comment contains the marker. The predicate reads the store at call
// time; mutating annotations during a collection is a caller bug.
func (a *Annotations) Boundary(marker string) region.Predicate {
	return func(node int) bool {
		return a.HasMarker(node, marker)
	}
}

// =============================================================================
// TOML persistence
// =============================================================================

type tomlNode struct {
	ID      int    `toml:"id"`
	Comment string `toml:"comment"`
}

type tomlDoc struct {
	Nodes []tomlNode `toml:"node"`
}

// Marshal encodes the annotations as TOML, sorted by node id.
func Marshal(a *Annotations) ([]byte, error) {
	doc := tomlDoc{Nodes: make([]tomlNode, 0, len(a.comments))}
	for _, id := range a.Nodes() {
		doc.Nodes = append(doc.Nodes, tomlNode{ID: id, Comment: a.comments[id]})
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode annotations: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a TOML annotation document.
func Unmarshal(data []byte) (*Annotations, error) {
	var doc tomlDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	a := New()
	for _, n := range doc.Nodes {
		if err := a.Set(n.ID, n.Comment); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Load reads an annotation file. A missing file yields an empty store:
// an unannotated graph is the common case, not an error.
func Load(path string) (*Annotations, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Save writes the annotations to path with 0644 permissions.
func Save(a *Annotations, path string) error {
	data, err := Marshal(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
