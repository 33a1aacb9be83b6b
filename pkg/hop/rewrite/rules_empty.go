package rewrite

import (
	"context"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

// f(X) -> matrix(0, nrow(X), ncol(X)) if X is empty and f(0) = 0.
func simplifyEmptyUnaryOperation(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	u, ok := hi.Op.(hop.Unary)
	if !ok || !u.Op.SparseSafe() {
		return hi, false, nil
	}
	if err := checkArity(SimplifyEmptyUnaryOperation, hi); err != nil {
		return hi, false, err
	}
	x := hi.Input(0)
	if !x.IsMatrix() || !x.IsEmpty() || !x.DimsKnown() {
		return hi, false, nil
	}
	z := zeros(hi.Graph(), x.Rows, x.Cols, x)
	return replaceWith(SimplifyEmptyUnaryOperation, parent, pos, hi, z)
}

// t(X), diag(X), reshape(X) -> matrix(0, ...) of the output shape if X is
// empty.
func simplifyEmptyReorgOperation(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	r, ok := hi.Op.(hop.Reorg)
	if !ok {
		return hi, false, nil
	}
	if err := checkArity(SimplifyEmptyReorgOperation, hi); err != nil {
		return hi, false, err
	}
	x := hi.Input(0)
	if !x.IsEmpty() {
		return hi, false, nil
	}

	g := hi.Graph()
	var repl *hop.Node
	switch r.Op {
	case hop.ReorgTranspose:
		if !x.DimsKnown() {
			return hi, false, nil
		}
		repl = zeros(g, x.Cols, x.Rows, x)
	case hop.ReorgDiag:
		if !x.DimsKnown() {
			return hi, false, nil
		}
		if x.Cols == 1 {
			repl = zeros(g, x.Rows, x.Rows, x)
		} else {
			repl = zeros(g, x.Rows, 1, x)
		}
	case hop.ReorgReshape:
		rows, okR := hop.LiteralInt(hi.Input(1))
		cols, okC := hop.LiteralInt(hi.Input(2))
		if okR && okC && x.DimsKnown() && rows*cols != x.Rows*x.Cols {
			return hi, false, structural(SimplifyEmptyReorgOperation, hi,
				"reshape of %dx%d into %dx%d", x.Rows, x.Cols, rows, cols)
		}
		repl = g.DataGenFrom(hi.Input(1), hi.Input(2), 0)
		inheritBlocks(repl, x)
	default:
		return hi, false, nil
	}
	return replaceWith(SimplifyEmptyReorgOperation, parent, pos, hi, repl)
}

// X %*% Y -> matrix(0, nrow(X), ncol(Y)) if X or Y is empty.
func simplifyEmptyMatrixMult(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if !hop.IsMatrixMult(hi) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyEmptyMatrixMult, hi); err != nil {
		return hi, false, err
	}
	left, right := hi.Input(0), hi.Input(1)
	if !left.IsEmpty() && !right.IsEmpty() {
		return hi, false, nil
	}
	if left.Rows < 0 || right.Cols < 0 {
		return hi, false, nil
	}
	z := zeros(hi.Graph(), left.Rows, right.Cols, left)
	return replaceWith(SimplifyEmptyMatrixMult, parent, pos, hi, z)
}

// X op Y over two matrices with an empty operand:
//
//	X * Y -> matrix(0, ...)
//	X + Y -> the other operand, or matrix(0, ...) if both are empty
//	X - Y -> 0 - Y if X is empty, X if Y is empty
//
// The result of a cell-wise operation has the shape of the left operand; a
// vector on the right is broadcast. Replacements that take the shape of the
// right operand therefore require it to be the full-size operand.
func simplifyEmptyBinaryOperation(ctx context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	b, ok := hi.Op.(hop.Binary)
	if !ok {
		return hi, false, nil
	}
	if err := checkArity(SimplifyEmptyBinaryOperation, hi); err != nil {
		return hi, false, err
	}
	left, right := hi.Input(0), hi.Input(1)
	if !left.IsMatrix() || !right.IsMatrix() {
		return hi, false, nil
	}

	g := hi.Graph()
	var repl *hop.Node
	switch b.Op {
	case hop.OpMult:
		switch {
		case (left.IsEmpty() || right.IsEmpty()) && left.DimsKnown():
			repl = zeros(g, left.Rows, left.Cols, left)
		case right.IsEmpty() && right.Rows > 1 && right.Cols > 1:
			repl = zeros(g, right.Rows, right.Cols, right)
		}
	case hop.OpPlus:
		switch {
		case left.IsEmpty() && right.IsEmpty() && left.SameSize(right):
			repl = zeros(g, left.Rows, left.Cols, left)
		case left.IsEmpty() && right.IsEmpty() && shapesDiffer(left, right):
			diagnose(ctx, SimplifyEmptyBinaryOperation, hi,
				"both operands empty with shapes %dx%d and %dx%d", left.Rows, left.Cols, right.Rows, right.Cols)
		case left.IsEmpty() && left.SameSize(right):
			repl = right
		case right.IsEmpty():
			repl = left
		}
	case hop.OpMinus:
		switch {
		case left.IsEmpty() && right.IsEmpty() && shapesDiffer(left, right):
			diagnose(ctx, SimplifyEmptyBinaryOperation, hi,
				"both operands empty with shapes %dx%d and %dx%d", left.Rows, left.Cols, right.Rows, right.Cols)
		case left.IsEmpty() && left.SameSize(right):
			return negate(parent, hi)
		case right.IsEmpty():
			repl = left
		}
	}

	if repl == nil {
		return hi, false, nil
	}
	return replaceWith(SimplifyEmptyBinaryOperation, parent, pos, hi, repl)
}

// negate replaces the empty left operand of hi by the literal 0, keeping hi.
func negate(parent, hi *hop.Node) (*hop.Node, bool, error) {
	zero := hi.Graph().Literal(0)
	if err := hop.Replace(hi, 0, zero); err != nil {
		hi.Graph().Discard(zero)
		return hi, false, editFailed(SimplifyEmptyBinaryOperation, hi, err)
	}
	hi.RefreshSize()
	parent.RefreshSize()
	return hi, true, nil
}
