// Package render groups the visual outputs of dmlopt.
//
// The [nodelink] subpackage draws an operator DAG as a Graphviz node-link
// diagram, which is the form used by "dmlopt render" and by the HTTP
// service to compare a program before and after optimization:
//
//	dot := nodelink.ToDOT(prog.Roots, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/dmlopt/pkg/render/nodelink
package render
