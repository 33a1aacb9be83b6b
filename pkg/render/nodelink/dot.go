package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes size facts in node labels.
	Detailed bool
}

// ToDOT converts the DAG reachable from roots to Graphviz DOT.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
func ToDOT(roots []*hop.Node, opts Options) string {
	var live []*hop.Node
	for _, r := range roots {
		if r != nil {
			live = append(live, r)
		}
	}
	nodes := hop.Reachable(live...)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range nodes {
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", dotID(n), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for i, in := range n.Inputs() {
			if n.NumInputs() > 1 {
				fmt.Fprintf(&buf, "  %q -> %q [taillabel=%q, fontsize=10];\n", dotID(in), dotID(n), strconv.Itoa(i))
			} else {
				fmt.Fprintf(&buf, "  %q -> %q;\n", dotID(in), dotID(n))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotID(n *hop.Node) string { return "n" + strconv.FormatUint(uint64(n.ID()), 10) }

func fmtLabel(n *hop.Node, detailed bool) string {
	label := n.Op.String()
	if n.Name != "" {
		label += " " + n.Name
	}
	if !detailed || !n.IsMatrix() {
		return label
	}
	return label + "\n" + fmt.Sprintf("%sx%s nnz=%s", fact(n.Rows), fact(n.Cols), fact(n.Nnz))
}

func fact(v int64) string {
	if v == hop.Unknown {
		return "?"
	}
	return strconv.FormatInt(v, 10)
}

func fmtAttrs(n *hop.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if _, ok := n.Op.(hop.Data); ok {
		attrs = append(attrs, "shape=ellipse")
	}
	if n.IsMatrix() && n.IsEmpty() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// Formats lists the output formats accepted by [Render].
var Formats = []string{"svg", "png", "dot"}

// Render draws the DAG reachable from roots as svg, png or raw dot.
func Render(ctx context.Context, roots []*hop.Node, format string, opts Options) ([]byte, error) {
	dot := ToDOT(roots, opts)
	switch strings.ToLower(format) {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return RenderSVG(ctx, dot)
	case "png":
		return RenderPNG(ctx, dot)
	}
	return nil, fmt.Errorf("unsupported render format %q", format)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
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
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root tag so the drawing scales with its
// container.
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

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
