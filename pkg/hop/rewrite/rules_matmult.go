package rewrite

import (
	"context"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

// X %*% matrix(1, 1, 1) -> X
func simplifyIdentityRepMatrixMult(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if !hop.IsMatrixMult(hi) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyIdentityRepMatrixMult, hi); err != nil {
		return hi, false, err
	}
	left, right := hi.Input(0), hi.Input(1)
	if !right.Is1x1() || !hop.HasConstantValue(right, 1) {
		return hi, false, nil
	}
	return replaceWith(SimplifyIdentityRepMatrixMult, parent, pos, hi, left)
}

// y %*% X -> castAsScalar(y) * X and X %*% y -> castAsScalar(y) * X for a
// 1x1 matrix y.
func simplifyScalarMatrixMult(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if !hop.IsMatrixMult(hi) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyScalarMatrixMult, hi); err != nil {
		return hi, false, err
	}
	left, right := hi.Input(0), hi.Input(1)

	var one, other *hop.Node
	switch {
	case left.Is1x1():
		one, other = left, right
	case right.Is1x1():
		one, other = right, left
	default:
		return hi, false, nil
	}
	if one.IsScalar() {
		return hi, false, structural(SimplifyScalarMatrixMult, hi, "1x1 operand %s is a scalar", one)
	}

	g := hi.Graph()
	cast := g.Unary(hop.OpCastAsScalar, one)
	cast.Name = one.Name
	mult := g.Binary(hop.OpMult, cast, other)
	mult.Name = hi.Name
	inheritBlocks(mult, other)
	return replaceWith(SimplifyScalarMatrixMult, parent, pos, hi, mult)
}

// diag(v) %*% Y -> v * Y if Y is a column vector, Y * v otherwise. The
// vector goes to the right operand when Y has several columns so that it is
// broadcast across them.
func simplifyMatrixMultDiag(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if !hop.IsMatrixMult(hi) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyMatrixMultDiag, hi); err != nil {
		return hi, false, err
	}
	left, right := hi.Input(0), hi.Input(1)
	if !hop.IsReorg(left, hop.ReorgDiag) || !left.DimsKnown() || left.Cols <= 1 {
		return hi, false, nil
	}
	if err := checkArity(SimplifyMatrixMultDiag, left); err != nil {
		return hi, false, err
	}
	v := left.Input(0)
	if v.IsScalar() || (v.DimsKnown() && (v.Cols != 1 || v.Rows != left.Rows)) {
		return hi, false, structural(SimplifyMatrixMultDiag, left,
			"diag expands %s into %dx%d", v, left.Rows, left.Cols)
	}

	g := hi.Graph()
	var mult *hop.Node
	switch {
	case right.Cols == 1:
		mult = g.Binary(hop.OpMult, v, right)
	case right.Cols > 1:
		mult = g.Binary(hop.OpMult, right, v)
	default:
		return hi, false, nil
	}
	mult.Name = v.Name
	inheritBlocks(mult, left)
	return replaceWith(SimplifyMatrixMultDiag, parent, pos, hi, mult)
}

// diag(X %*% Y) -> rowSums(X * t(Y)) when the diagonal is extracted as a
// column vector.
func simplifyDiagMatrixMult(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if !hop.IsReorg(hi, hop.ReorgDiag) || hi.Cols != 1 {
		return hi, false, nil
	}
	if err := checkArity(SimplifyDiagMatrixMult, hi); err != nil {
		return hi, false, err
	}
	mm := hi.Input(0)
	if !hop.IsMatrixMult(mm) {
		return hi, false, nil
	}
	if err := checkArity(SimplifyDiagMatrixMult, mm); err != nil {
		return hi, false, err
	}
	if mm.DimsKnown() && mm.Rows != mm.Cols {
		return hi, false, structural(SimplifyDiagMatrixMult, hi,
			"diagonal of non-square product %dx%d", mm.Rows, mm.Cols)
	}
	x, y := mm.Input(0), mm.Input(1)

	g := hi.Graph()
	ty := g.Transpose(y)
	ty.Name = y.Name
	inheritBlocks(ty, y)
	mult := g.Binary(hop.OpMult, x, ty)
	mult.Name = y.Name
	inheritBlocks(mult, y)
	sums := g.Agg(hop.AggSum, hop.DirRow, mult)
	sums.Name = hi.Name
	inheritBlocks(sums, y)
	return replaceWith(SimplifyDiagMatrixMult, parent, pos, hi, sums)
}

// (0 - X) %*% Y -> 0 - (X %*% Y) and X %*% (0 - Y) -> 0 - (X %*% Y). The
// negation replaces the product under every former parent.
func reorderMinusMatrixMult(_ context.Context, _, hi *hop.Node, _ int) (*hop.Node, bool, error) {
	if !hop.IsMatrixMult(hi) {
		return hi, false, nil
	}
	if err := checkArity(ReorderMinusMatrixMult, hi); err != nil {
		return hi, false, err
	}
	left, right := hi.Input(0), hi.Input(1)

	negLeft, err := isNegation(left)
	if err != nil {
		return hi, false, err
	}
	negRight := false
	if !negLeft {
		if negRight, err = isNegation(right); err != nil {
			return hi, false, err
		}
	}

	g := hi.Graph()
	var mm *hop.Node
	switch {
	case negLeft:
		mm = g.MatMult(left.Input(1), right)
	case negRight:
		mm = g.MatMult(left, right.Input(1))
	default:
		return hi, false, nil
	}
	mm.Name = hi.Name
	inheritBlocks(mm, hi)

	minus := g.Binary(hop.OpMinus, g.Literal(0), mm)
	minus.Name = hi.Name
	inheritBlocks(minus, hi)
	return rehang(ReorderMinusMatrixMult, hi, minus)
}

// isNegation matches 0 - X.
func isNegation(n *hop.Node) (bool, error) {
	if !hop.IsBinary(n, hop.OpMinus) {
		return false, nil
	}
	if err := checkArity(ReorderMinusMatrixMult, n); err != nil {
		return false, err
	}
	return hop.IsLiteral(n.Input(0), 0), nil
}
