// Package nodelink renders operator DAGs as node-link diagrams.
//
// # Overview
//
// Each live node reachable from the roots becomes a box labelled with its
// operator; edges point from an input to its consumer, so data flows top to
// bottom and the program sinks sit at the bottom of the drawing.
//
// # Usage
//
//	dot := nodelink.ToDOT(roots, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// # Options
//
//   - Detailed: include size facts (rows x cols, nnz) in labels
//
// Variable reads and writes are drawn as ellipses. Nodes that are provably
// empty (nnz = 0) are drawn dashed and grey, which makes the effect of the
// empty-operand rewrites easy to see.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz] in process; no Graphviz
// installation is required.
package nodelink
