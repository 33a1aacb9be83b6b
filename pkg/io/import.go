package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Read decodes a program from r.
//
// Nodes are created in dependency order through the [hop.Graph] builders, so
// every node that does not carry explicit size facts gets them from
// [hop.Node.RefreshSize]. Nodes that no root reaches are ignored.
//
// Read returns an error with code INVALID_FORMAT for undecodable input and
// GRAPH_INVALID for structural problems: duplicate or dangling IDs, cycles,
// unknown operators, wrong input counts and inconsistent size facts. Read
// does not close r.
func Read(r io.Reader, format Format) (*Program, error) {
	doc, err := decode(r, format)
	if err != nil {
		return nil, err
	}
	return build(doc)
}

// Import reads the program file at path, inferring the format from the
// extension.
func Import(path string) (*Program, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}

func decode(r io.Reader, format Format) (*document, error) {
	var doc document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode json")
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "decode toml: unknown field %s", undecoded[0])
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "format %q", format)
	}
	return &doc, nil
}

type builder struct {
	g        *hop.Graph
	byID     map[string]docNode
	built    map[string]*hop.Node
	visiting map[string]bool
}

func build(doc *document) (*Program, error) {
	if len(doc.Roots) == 0 {
		return nil, errors.New(errors.ErrCodeGraphInvalid, "program has no roots")
	}

	b := &builder{
		g:        hop.NewGraph(),
		byID:     make(map[string]docNode, len(doc.Nodes)),
		built:    make(map[string]*hop.Node, len(doc.Nodes)),
		visiting: make(map[string]bool),
	}
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return nil, errors.New(errors.ErrCodeGraphInvalid, "node without id")
		}
		if _, dup := b.byID[n.ID]; dup {
			return nil, errors.New(errors.ErrCodeGraphInvalid, "duplicate node %q", n.ID)
		}
		b.byID[n.ID] = n
	}

	roots := make([]*hop.Node, len(doc.Roots))
	for i, id := range doc.Roots {
		n, err := b.node(id)
		if err != nil {
			return nil, err
		}
		roots[i] = n
	}
	if err := hop.Validate(roots...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeGraphInvalid, err, "invalid program")
	}
	return &Program{Graph: b.g, Roots: roots}, nil
}

func (b *builder) node(id string) (*hop.Node, error) {
	if n, ok := b.built[id]; ok {
		return n, nil
	}
	d, ok := b.byID[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeGraphInvalid, "unknown node %q", id)
	}
	if b.visiting[id] {
		return nil, errors.New(errors.ErrCodeGraphInvalid, "cycle through node %q", id)
	}

	b.visiting[id] = true
	inputs := make([]*hop.Node, len(d.Inputs))
	for i, in := range d.Inputs {
		n, err := b.node(in)
		if err != nil {
			return nil, err
		}
		inputs[i] = n
	}
	delete(b.visiting, id)

	n, err := b.create(d, inputs)
	if err != nil {
		return nil, err
	}
	b.built[id] = n
	return n, nil
}

func (b *builder) create(d docNode, in []*hop.Node) (*hop.Node, error) {
	want, ok := arity[d.Op]
	if d.Op == "reorg" {
		want, ok = 1, true
		if d.Reorg == "reshape" {
			want = 3
		}
	}
	if !ok {
		return nil, invalid(d, "unknown op %q", d.Op)
	}
	if len(in) != want {
		return nil, invalid(d, "%s takes %d inputs, got %d", d.Op, want, len(in))
	}

	vt := hop.Double
	if d.ValueType != "" {
		var err error
		if vt, err = enum(d, "value_type", d.ValueType, hop.ValueTypes); err != nil {
			return nil, err
		}
	}
	value := 0.0
	if d.Value != nil {
		value = *d.Value
	}

	g := b.g
	var n *hop.Node
	switch d.Op {
	case "read":
		if err := errors.ValidateVariableName(d.Name); err != nil {
			return nil, err
		}
		dt := hop.Matrix
		if d.DataType != "" {
			var err error
			if dt, err = enum(d, "data_type", d.DataType, hop.DataTypes); err != nil {
				return nil, err
			}
		}
		if dt == hop.Scalar {
			n = g.ReadScalar(d.Name, vt)
		} else {
			n = g.Read(d.Name, hop.Unknown, hop.Unknown, hop.Unknown)
			n.ValueType = vt
		}
	case "write":
		if err := errors.ValidateVariableName(d.Name); err != nil {
			return nil, err
		}
		n = g.Write(d.Name, in[0])
	case "literal":
		n = g.Literal(value)
		n.ValueType = vt
		if d.Text != "" {
			n.Op = hop.Literal{Value: value, Text: d.Text}
		}
	case "datagen":
		n = g.DataGenFrom(in[0], in[1], value)
	case "agg":
		op, err := enum(d, "agg", d.Agg, hop.AggOps)
		if err != nil {
			return nil, err
		}
		dir := hop.DirRowCol
		if d.Dir != "" {
			if dir, err = enum(d, "dir", d.Dir, hop.Directions); err != nil {
				return nil, err
			}
		}
		n = g.Agg(op, dir, in[0])
	case "matmult":
		n = g.MatMult(in[0], in[1])
	case "binary":
		op, err := enum(d, "binary", d.Binary, hop.BinaryOps)
		if err != nil {
			return nil, err
		}
		n = g.Binary(op, in[0], in[1])
	case "unary":
		op, err := enum(d, "unary", d.Unary, hop.UnaryOps)
		if err != nil {
			return nil, err
		}
		n = g.Unary(op, in[0])
	case "reorg":
		op, err := enum(d, "reorg", d.Reorg, hop.ReorgOps)
		if err != nil {
			return nil, err
		}
		switch op {
		case hop.ReorgTranspose:
			n = g.Transpose(in[0])
		case hop.ReorgDiag:
			n = g.Diag(in[0])
		case hop.ReorgReshape:
			n = g.Reshape(in[0], in[1], in[2])
		}
	case "index", "leftindex":
		rows, err := parseBounds(d, d.RowsRange)
		if err != nil {
			return nil, err
		}
		cols, err := parseBounds(d, d.ColsRange)
		if err != nil {
			return nil, err
		}
		if d.Op == "index" {
			n = g.Index(in[0], rows, cols)
		} else {
			n = g.LeftIndex(in[0], in[1], rows, cols)
		}
	}

	if n.Name == "" {
		n.Name = d.Name
	}
	if d.Rows != nil {
		n.Rows = *d.Rows
	}
	if d.Cols != nil {
		n.Cols = *d.Cols
	}
	if d.Nnz != nil {
		n.Nnz = *d.Nnz
	}
	if d.Block != nil {
		n.RowsPerBlock, n.ColsPerBlock = *d.Block, *d.Block
	}
	return n, nil
}

func enum[T any](d docNode, field, s string, table map[string]T) (T, error) {
	v, ok := table[s]
	if !ok {
		var zero T
		if s == "" {
			return zero, invalid(d, "missing %s", field)
		}
		return zero, invalid(d, "unknown %s %q", field, s)
	}
	return v, nil
}

// parseBounds reads "lower:upper", a single position, or "" for the whole
// dimension.
func parseBounds(d docNode, s string) (hop.Bounds, error) {
	if s == "" {
		return hop.Full(), nil
	}
	lo, hi, found := strings.Cut(s, ":")
	if !found {
		hi = lo
	}
	lower, err1 := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	upper, err2 := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err1 != nil || err2 != nil || lower < 1 || upper < lower {
		return hop.Bounds{}, invalid(d, "invalid range %q", s)
	}
	return hop.Span(lower, upper), nil
}

func invalid(d docNode, format string, args ...any) error {
	return errors.New(errors.ErrCodeGraphInvalid, "node %q: %s", d.ID, fmt.Sprintf(format, args...))
}
