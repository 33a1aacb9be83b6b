package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
)

const colSumTOML = `
roots = ["out"]

[[nodes]]
id = "X"
op = "read"
name = "X"
rows = 5
cols = 5
nnz = 0

[[nodes]]
id = "s"
op = "agg"
agg = "sum"
dir = "col"
inputs = ["X"]

[[nodes]]
id = "out"
op = "write"
name = "R"
inputs = ["s"]
`

func TestRead_TOML(t *testing.T) {
	prog, err := Read(strings.NewReader(colSumTOML), FormatTOML)
	require.NoError(t, err)
	require.Len(t, prog.Roots, 1)

	out := prog.Roots[0]
	assert.Equal(t, "write", out.Op.Kind())
	assert.Equal(t, "R", out.Name)

	s := out.Input(0)
	assert.Equal(t, hop.AggUnary{Op: hop.AggSum, Dir: hop.DirCol}, s.Op)
	assert.Equal(t, int64(1), s.Rows)
	assert.Equal(t, int64(5), s.Cols)

	x := s.Input(0)
	assert.Equal(t, "X", x.Name)
	assert.True(t, x.IsEmpty())
	assert.Equal(t, 3, prog.Graph.Live())
}

func TestRead_UnreachableNodesIgnored(t *testing.T) {
	src := `{
  "roots": ["out"],
  "nodes": [
    {"id": "X", "op": "read", "name": "X"},
    {"id": "unused", "op": "unary", "unary": "abs", "inputs": ["X"]},
    {"id": "out", "op": "write", "name": "R", "inputs": ["X"]}
  ]
}`
	prog, err := Read(strings.NewReader(src), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.Graph.Live())
}

func TestRead_YAML(t *testing.T) {
	src := `
roots: [out]
nodes:
  - {id: n, op: read, name: n, data_type: scalar, value_type: int}
  - {id: X, op: read, name: X, rows: 4, cols: 3}
  - {id: part, op: index, inputs: [X], rows_range: "2:3", cols_range: "1"}
  - {id: out, op: write, name: R, inputs: [part]}
`
	prog, err := Read(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)

	part := prog.Roots[0].Input(0)
	assert.Equal(t, hop.Index{Rows: hop.Span(2, 3), Cols: hop.Span(1, 1)}, part.Op)
	assert.Equal(t, int64(2), part.Rows)
	assert.Equal(t, int64(1), part.Cols)
}

func TestRoundTrip(t *testing.T) {
	g := hop.NewGraph()
	x := g.Read("X", 10, 4, hop.Unknown)
	x.RowsPerBlock, x.ColsPerBlock = 500, 500
	y := g.Read("Y", 4, 10, 0)
	s := g.ReadScalar("s", hop.Int)
	mm := g.MatMult(x, y)
	scaled := g.Binary(hop.OpMult, mm, s)
	zeros := g.DataGen(10, 10, 0)
	sum := g.Binary(hop.OpPlus, scaled, zeros)
	shaped := g.Reshape(sum, g.IntLiteral(20), g.IntLiteral(5))
	li := g.LeftIndex(shaped, g.Index(x, hop.Span(1, 10), hop.Span(2, 2)), hop.Span(1, 10), hop.Span(3, 3))
	out1 := g.Write("A", g.Agg(hop.AggMax, hop.DirRow, g.Transpose(li)))
	out2 := g.Write("B", g.Unary(hop.OpAbs, g.Diag(g.Agg(hop.AggSum, hop.DirCol, y))))

	prog := &Program{Graph: g, Roots: []*hop.Node{out1, out2}}
	want := describe(prog.Roots)

	for _, format := range []Format{FormatJSON, FormatTOML, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Marshal(prog, format)
			require.NoError(t, err)

			back, err := Read(strings.NewReader(string(data)), format)
			require.NoError(t, err, "encoded program:\n%s", data)
			assert.Equal(t, want, describe(back.Roots))
		})
	}
}

func TestExportImport(t *testing.T) {
	prog, err := Read(strings.NewReader(colSumTOML), FormatTOML)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "prog.yaml")
	require.NoError(t, Export(prog, path))

	back, err := Import(path)
	require.NoError(t, err)
	assert.Equal(t, describe(prog.Roots), describe(back.Roots))
}

func TestImport_Errors(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)

	path := filepath.Join(t.TempDir(), "prog.txt")
	require.NoError(t, os.WriteFile(path, []byte(colSumTOML), 0o644))
	_, err = Import(path)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
}

func TestRead_InvalidPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.Code
	}{
		{
			name: "malformed",
			src:  `{"roots": [`,
			code: errors.ErrCodeInvalidFormat,
		},
		{
			name: "unknown field",
			src:  `{"roots": ["a"], "nodes": [{"id": "a", "op": "read", "name": "a", "shape": 3}]}`,
			code: errors.ErrCodeInvalidFormat,
		},
		{
			name: "no roots",
			src:  `{"nodes": [{"id": "a", "op": "read", "name": "a"}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "duplicate id",
			src:  `{"roots": ["a"], "nodes": [{"id": "a", "op": "read", "name": "a"}, {"id": "a", "op": "read", "name": "b"}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "dangling input",
			src:  `{"roots": ["w"], "nodes": [{"id": "w", "op": "write", "name": "R", "inputs": ["nope"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "cycle",
			src: `{"roots": ["w"], "nodes": [
				{"id": "a", "op": "unary", "unary": "abs", "inputs": ["b"]},
				{"id": "b", "op": "unary", "unary": "abs", "inputs": ["a"]},
				{"id": "w", "op": "write", "name": "R", "inputs": ["a"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "unknown op",
			src:  `{"roots": ["a"], "nodes": [{"id": "a", "op": "solve"}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "wrong arity",
			src:  `{"roots": ["m"], "nodes": [{"id": "x", "op": "read", "name": "x"}, {"id": "m", "op": "matmult", "inputs": ["x"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "reshape needs dimensions",
			src:  `{"roots": ["r"], "nodes": [{"id": "x", "op": "read", "name": "x"}, {"id": "r", "op": "reorg", "reorg": "reshape", "inputs": ["x"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "missing aggregate operator",
			src:  `{"roots": ["s"], "nodes": [{"id": "x", "op": "read", "name": "x"}, {"id": "s", "op": "agg", "inputs": ["x"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "unknown binary operator",
			src:  `{"roots": ["b"], "nodes": [{"id": "x", "op": "read", "name": "x"}, {"id": "b", "op": "binary", "binary": "%%", "inputs": ["x", "x"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "bad range",
			src:  `{"roots": ["i"], "nodes": [{"id": "x", "op": "read", "name": "x"}, {"id": "i", "op": "index", "rows_range": "3:1", "inputs": ["x"]}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
		{
			name: "invalid variable name",
			src:  `{"roots": ["x"], "nodes": [{"id": "x", "op": "read", "name": "1x"}]}`,
			code: errors.ErrCodeInvalidVariable,
		},
		{
			name: "nnz exceeds cells",
			src:  `{"roots": ["x"], "nodes": [{"id": "x", "op": "read", "name": "x", "rows": 2, "cols": 2, "nnz": 5}]}`,
			code: errors.ErrCodeGraphInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.src), FormatJSON)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), "got %v", err)
		})
	}
}

func TestWrite_UnsupportedAggregateBinary(t *testing.T) {
	g := hop.NewGraph()
	x := g.Read("X", 2, 2, hop.Unknown)
	ab := g.New(hop.AggBinary{Inner: hop.OpPlus, Outer: hop.AggMax}, hop.Matrix, hop.Double, x, x)
	prog := &Program{Graph: g, Roots: []*hop.Node{g.Write("R", ab)}}

	_, err := Marshal(prog, FormatJSON)
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported), "got %v", err)
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	for path, want := range map[string]Format{
		"a.json": FormatJSON, "dir/b.TOML": FormatTOML, "c.yml": FormatYAML, "d.yaml": FormatYAML,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

// describe renders the reachable graph with inputs as positions in the
// topological order, so two graphs compare equal regardless of node IDs.
func describe(roots []*hop.Node) []string {
	order := hop.Reachable(roots...)
	pos := make(map[hop.ID]int, len(order))
	out := make([]string, len(order))
	for i, n := range order {
		pos[n.ID()] = i
		var in []int
		for _, c := range n.Inputs() {
			in = append(in, pos[c.ID()])
		}
		out[i] = fmt.Sprintf("%s %q %s/%s %dx%d nnz=%d blk=%d in=%v",
			n.Op, n.Name, n.DataType, n.ValueType, n.Rows, n.Cols, n.Nnz, n.RowsPerBlock, in)
	}
	return out
}
