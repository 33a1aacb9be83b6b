package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

func program() []*hop.Node {
	g := hop.NewGraph()
	x := g.Read("X", 5, 5, 0)
	y := g.Read("Y", 1, 5, hop.Unknown)
	return []*hop.Node{g.Write("R", g.Binary(hop.OpPlus, g.Agg(hop.AggSum, hop.DirCol, x), y))}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(program(), Options{})

	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, `label="read X", shape=ellipse, style="rounded,filled,dashed"`)
	assert.Contains(t, dot, `label="write R", shape=ellipse]`)
	assert.Contains(t, dot, `label="colsum`)
	assert.Equal(t, 4, strings.Count(dot, "->"))
	assert.Equal(t, 2, strings.Count(dot, "taillabel="), "binary inputs are numbered")
}

func TestToDOT_Detailed(t *testing.T) {
	dot := ToDOT(program(), Options{Detailed: true})

	assert.Contains(t, dot, `read X\n5x5 nnz=0`)
	assert.Contains(t, dot, `read Y\n1x5 nnz=?`)
}

func TestToDOT_NilRoots(t *testing.T) {
	dot := ToDOT([]*hop.Node{nil}, Options{})
	assert.NotContains(t, dot, "->")
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(program(), Options{Detailed: true}))
	require.NoError(t, err)
	assert.Contains(t, string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0`)
	assert.Contains(t, string(svg), "write R")
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	_, err := RenderSVG(context.Background(), "digraph {")
	assert.Error(t, err)
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	out := string(normalizeViewBox(in))
	assert.Equal(t, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20"><g/></svg>`, out)

	plain := []byte("<svg><g/></svg>")
	assert.Equal(t, plain, normalizeViewBox(plain))
}

func TestRender_Formats(t *testing.T) {
	ctx := context.Background()

	dot, err := Render(ctx, program(), "dot", Options{})
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph")

	svg, err := Render(ctx, program(), "SVG", Options{Detailed: true})
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = Render(ctx, program(), "pdf", Options{})
	assert.ErrorContains(t, err, "pdf")
}
