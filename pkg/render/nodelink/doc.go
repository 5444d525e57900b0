// Package nodelink renders flow graphs as node-link diagrams via Graphviz.
//
// The package emits DOT text with optional region highlighting - region
// members filled, the start node outlined, boundary nodes drawn as
// octagons - so a collected region can be reviewed before it is collapsed
// into a group. DOT output can be turned into SVG or PNG with the bundled
// Graphviz engine; no external binary is required.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Region: members})
//	svg, err := nodelink.RenderSVG(dot)
package nodelink
