// Package io reads and writes operator programs as JSON, TOML or YAML.
//
// # Overview
//
// A program file lists the nodes of an operator DAG and the sinks (roots)
// to optimize. The same schema is used for all three encodings, so a
// program can be converted between them without loss:
//
//	roots = ["out"]
//
//	[[nodes]]
//	id = "X"
//	op = "read"
//	name = "X"
//	rows = 5
//	cols = 5
//	nnz = 0
//
//	[[nodes]]
//	id = "s"
//	op = "agg"
//	agg = "sum"
//	dir = "col"
//	inputs = ["X"]
//
//	[[nodes]]
//	id = "out"
//	op = "write"
//	name = "R"
//	inputs = ["s"]
//
// # Node Fields
//
// Required:
//   - id: identifier referenced by roots and inputs
//   - op: read, write, literal, datagen, agg, matmult, binary, unary, reorg,
//     index or leftindex
//
// Operator parameters:
//   - agg, dir: aggregate operator (sum, min, max, mean, prod, trace) and
//     direction (rowcol, row, col)
//   - binary, unary, reorg: operator symbol (for example "*", "abs", "t")
//   - value, text: literal and generator constants
//   - rows_range, cols_range: 1-based inclusive "lower:upper" bounds for
//     indexing; empty selects the whole dimension
//
// Size facts:
//   - rows, cols, nnz: known output facts; omitted facts are unknown for
//     reads and derived from the inputs for every other operator
//   - block: block size for both dimensions
//
// Nodes may appear in any order. Reading rejects unknown fields, dangling
// input references, cycles and operators with the wrong number of inputs.
//
// # Import
//
// Use [Import] to read a program from a file, choosing the encoding from the
// extension, or [Read] with an explicit [Format]:
//
//	prog, err := io.Import("linreg.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = rewrite.RewriteRoots(ctx, prog.Roots)
//
// # Export
//
// [Write] and [Export] encode the live graph reachable from the roots. Node
// IDs are derived from the node identities, so an exported program can be
// re-imported and produces the same structure and size facts.
package io
