package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Region lists node ids drawn as the highlighted group-candidate
	// region. The first entry is treated as the region's start node and
	// emphasized further.
	Region []int

	// Boundary answers whether a node is a stop marker; boundary nodes
	// are drawn as octagons. A nil Boundary marks nothing.
	Boundary func(node int) bool

	// Detailed includes node ids alongside labels.
	// When false, only the label (or bare id) is shown.
	Detailed bool
}

// ToDOT converts a flow graph to Graphviz DOT format for node-link
// visualization. The resulting DOT string can be rendered with
// [RenderSVG] or [RenderPNG].
//
// Region members are filled, the start node gets a heavier outline, and
// boundary nodes are shaped as octagons so stop markers stand out in
// review renders.
func ToDOT(g *flowgraph.Graph, opts Options) string {
	inRegion := make(map[int]bool, len(opts.Region))
	for _, v := range opts.Region {
		inRegion[v] = true
	}
	start := -1
	if len(opts.Region) > 0 {
		start = opts.Region[0]
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for v := 0; v < g.NodeCount(); v++ {
		attrs := fmtAttrs(g, v, opts, inRegion[v], v == start)
		fmt.Fprintf(&buf, "  n%d [%s];\n", v, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for v := 0; v < g.NodeCount(); v++ {
		for _, s := range g.Succs(v) {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", v, s)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(g *flowgraph.Graph, v int, detailed bool) string {
	label := g.Label(v)
	if label == "" {
		return strconv.Itoa(v)
	}
	if detailed {
		return fmt.Sprintf("%s\n#%d", label, v)
	}
	return label
}

func fmtAttrs(g *flowgraph.Graph, v int, opts Options, inRegion, isStart bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(g, v, opts.Detailed))}
	if opts.Boundary != nil && opts.Boundary(v) {
		attrs = append(attrs, "shape=octagon", "fillcolor=mistyrose")
	}
	if inRegion {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if isStart {
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display.
func RenderSVG(dot string) ([]byte, error) {
	return render(dot, graphviz.SVG, normalizeViewBox)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG, nil)
}

func render(dot string, format graphviz.Format, post func([]byte) []byte) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	out := buf.Bytes()
	if post != nil {
		out = post(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the SVG root element so the diagram scales in
// browsers that ignore Graphviz's point-based width/height attributes.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
