package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Write encodes the live graph reachable from prog.Roots and writes it to w.
// Nil roots are skipped.
func Write(w io.Writer, prog *Program, format Format) error {
	doc, err := encode(prog.Roots)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeUnsupported, "format %q", format)
	}
	return nil
}

// Marshal returns the encoding of prog.
func Marshal(prog *Program, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, prog, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export writes prog to a file at path, inferring the format from the
// extension.
func Export(prog *Program, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, prog, format)
}

func nodeID(n *hop.Node) string { return fmt.Sprintf("n%d", n.ID()) }

func encode(roots []*hop.Node) (*document, error) {
	var live []*hop.Node
	for _, r := range roots {
		if r != nil {
			live = append(live, r)
		}
	}

	doc := &document{Roots: make([]string, len(live))}
	for i, r := range live {
		doc.Roots[i] = nodeID(r)
	}

	for _, n := range hop.Reachable(live...) {
		d := docNode{ID: nodeID(n), Name: n.Name}
		for _, in := range n.Inputs() {
			d.Inputs = append(d.Inputs, nodeID(in))
		}

		switch op := n.Op.(type) {
		case hop.Data:
			d.Op = op.Kind()
			if op.Mode == hop.Read && n.IsScalar() {
				d.DataType = n.DataType.String()
			}
		case hop.Literal:
			d.Op = op.Kind()
			d.Value = ptr(op.Value)
			d.Text = op.Text
		case hop.DataGen:
			d.Op = op.Kind()
			d.Value = ptr(op.Value)
		case hop.AggUnary:
			d.Op = op.Kind()
			d.Agg = op.Op.String()
			d.Dir = op.Dir.String()
		case hop.AggBinary:
			if !op.IsMatrixMult() {
				return nil, errors.New(errors.ErrCodeUnsupported, "%s: aggregate binary %s", n, op)
			}
			d.Op = op.Kind()
		case hop.Binary:
			d.Op = op.Kind()
			d.Binary = op.Op.String()
		case hop.Unary:
			d.Op = op.Kind()
			d.Unary = op.Op.String()
		case hop.Reorg:
			d.Op = op.Kind()
			d.Reorg = op.Op.String()
		case hop.Index:
			d.Op = op.Kind()
			d.RowsRange, d.ColsRange = op.Rows.String(), op.Cols.String()
		case hop.LeftIndex:
			d.Op = op.Kind()
			d.RowsRange, d.ColsRange = op.Rows.String(), op.Cols.String()
		}

		if n.ValueType != hop.Double {
			d.ValueType = n.ValueType.String()
		}
		if n.IsMatrix() {
			d.Rows, d.Cols, d.Nnz = fact(n.Rows), fact(n.Cols), fact(n.Nnz)
			if n.RowsPerBlock != hop.DefaultBlockSize {
				d.Block = ptr(n.RowsPerBlock)
			}
		}
		doc.Nodes = append(doc.Nodes, d)
	}
	return doc, nil
}

func ptr[T any](v T) *T { return &v }

// fact returns nil for unknown facts so they are omitted.
func fact(v int64) *int64 {
	if v == hop.Unknown {
		return nil
	}
	return ptr(v)
}
