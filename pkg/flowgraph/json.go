package flowgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// Node is the serialization form of a graph node.
type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label,omitempty"`
}

// Edge is the serialization form of a directed edge.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Document is the canonical serialization format for flow graphs.
// It is human-readable and designed for round-trip fidelity: import →
// transform → export → re-import produces identical results.
type Document struct {
	Entry int    `json:"entry"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Marshal converts a graph to JSON bytes.
// Nodes and edges are sorted for deterministic output.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTo(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a graph to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeTo(g, f)
}

// Write writes a graph as JSON to an io.Writer.
// Use Marshal for in-memory serialization or WriteFile for files.
func Write(g *Graph, w io.Writer) error {
	return writeTo(g, w)
}

// ReadFile reads a JSON file and returns the decoded graph.
// Returns validation errors for malformed documents.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readFrom(f)
}

// Read decodes a JSON graph from an io.Reader.
// Use ReadFile for files or pass bytes.NewReader for in-memory data.
func Read(r io.Reader) (*Graph, error) {
	return readFrom(r)
}

// =============================================================================
// Graph ↔ Document Conversion
// =============================================================================

// ToDocument converts a graph to its serialization format.
// Nodes are sorted by id and edges by (from, to) for deterministic output.
func ToDocument(g *Graph) Document {
	doc := Document{
		Entry: g.Entry(),
		Nodes: make([]Node, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for v := 0; v < g.NodeCount(); v++ {
		doc.Nodes[v] = Node{ID: v, Label: g.Label(v)}
		for _, s := range g.Succs(v) {
			doc.Edges = append(doc.Edges, Edge{From: v, To: s})
		}
	}
	slices.SortFunc(doc.Edges, func(a, b Edge) int {
		if a.From != b.From {
			return a.From - b.From
		}
		return a.To - b.To
	})
	return doc
}

// FromDocument validates a serialized document and builds a graph from it.
// Node ids must form the dense range [0, len(nodes)) with no duplicates;
// edge endpoints must reference listed nodes.
func FromDocument(doc Document) (*Graph, error) {
	g, err := New(len(doc.Nodes), doc.Entry)
	if err != nil {
		return nil, err
	}
	seen := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID < 0 || n.ID >= len(doc.Nodes) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrNodeOutOfRange, n.ID, len(doc.Nodes))
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		seen[n.ID] = true
		if n.Label != "" {
			if err := g.SetLabel(n.ID, n.Label); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, fmt.Errorf("edge %d → %d: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeTo(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readFrom(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocument(doc)
}
