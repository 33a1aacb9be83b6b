package rewrite

import (
	"context"
	"slices"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Aggregates whose row or column form over a vector equals the full form.
var vectorAggOps = []hop.AggOp{hop.AggSum, hop.AggMin, hop.AggMax, hop.AggMean}

// Aggregates that yield 0 over an all-zero input. Mean is left out since it
// depends on the cell count.
var emptyAggOps = []hop.AggOp{hop.AggSum, hop.AggMin, hop.AggMax, hop.AggProd, hop.AggTrace}

// colAgg(X) -> X if X has one row; -> castAsMatrix(agg(X)) if X has one
// column.
func simplifyColwiseAggregate(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	agg, ok := hi.Op.(hop.AggUnary)
	if !ok || agg.Dir != hop.DirCol || !slices.Contains(vectorAggOps, agg.Op) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyColwiseAggregate, hi); err != nil {
		return hi, false, err
	}
	x := hi.Input(0)
	switch {
	case x.Rows == 1:
		return replaceWith(SimplifyColwiseAggregate, parent, pos, hi, x)
	case x.Cols == 1:
		return collapseToFull(SimplifyColwiseAggregate, hi, agg)
	}
	return hi, false, nil
}

// rowAgg(X) -> X if X has one column; -> castAsMatrix(agg(X)) if X has one
// row.
func simplifyRowwiseAggregate(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	agg, ok := hi.Op.(hop.AggUnary)
	if !ok || agg.Dir != hop.DirRow || !slices.Contains(vectorAggOps, agg.Op) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyRowwiseAggregate, hi); err != nil {
		return hi, false, err
	}
	x := hi.Input(0)
	switch {
	case x.Cols == 1:
		return replaceWith(SimplifyRowwiseAggregate, parent, pos, hi, x)
	case x.Rows == 1:
		return collapseToFull(SimplifyRowwiseAggregate, hi, agg)
	}
	return hi, false, nil
}

// collapseToFull turns a directional aggregate into a full one and wraps it
// in a cast back to a 1x1 matrix. The cast replaces the aggregate under every
// former parent. The aggregate is changed in place unless it is pinned as a
// root, in which case the full aggregate is a new node and the root keeps its
// row or column form.
func collapseToFull(rule string, hi *hop.Node, agg hop.AggUnary) (*hop.Node, bool, error) {
	g := hi.Graph()
	full := hi
	if hi.Pinned() {
		full = g.Agg(agg.Op, hop.DirRowCol, hi.Input(0))
		full.Name = hi.Name
		inheritBlocks(full, hi)
	} else {
		hi.Op = hop.AggUnary{Op: agg.Op, Dir: hop.DirRowCol}
		hi.DataType = hop.Scalar
		hi.RefreshSize()
	}

	cast := g.Unary(hop.OpCastAsMatrix, full)
	cast.Name = hi.Name
	inheritBlocks(cast, hi)
	return rehang(rule, hi, cast)
}

// agg(X) -> 0 or an empty row/column vector if X is empty.
func simplifyEmptyAggregate(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	agg, ok := hi.Op.(hop.AggUnary)
	if !ok || !slices.Contains(emptyAggOps, agg.Op) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyEmptyAggregate, hi); err != nil {
		return hi, false, err
	}
	x := hi.Input(0)
	if !x.IsEmpty() {
		return hi, false, nil
	}

	g := hi.Graph()
	var repl *hop.Node
	switch agg.Dir {
	case hop.DirRowCol:
		repl = g.Literal(0)
	case hop.DirCol:
		if x.Cols < 0 {
			return hi, false, nil
		}
		repl = zeros(g, 1, x.Cols, x)
	case hop.DirRow:
		if x.Rows < 0 {
			return hi, false, nil
		}
		repl = zeros(g, x.Rows, 1, x)
	default:
		return hi, false, nil
	}
	return replaceWith(SimplifyEmptyAggregate, parent, pos, hi, repl)
}
