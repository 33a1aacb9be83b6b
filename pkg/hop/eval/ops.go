package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

func aggregate(op hop.AggUnary, x Value) (Value, error) {
	r, c, err := dims(x)
	if err != nil {
		return Value{}, err
	}
	if op.Op == hop.AggTrace {
		if r != c {
			return Value{}, fmt.Errorf("trace of %dx%d", r, c)
		}
		return Scalar(mat.Trace(x.Matrix)), nil
	}

	switch op.Dir {
	case hop.DirRowCol:
		all := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			all = append(all, mat.Row(nil, i, x.Matrix)...)
		}
		return Scalar(reduce(op.Op, all)), nil
	case hop.DirRow:
		out := mat.NewDense(r, 1, nil)
		for i := 0; i < r; i++ {
			out.Set(i, 0, reduce(op.Op, mat.Row(nil, i, x.Matrix)))
		}
		return Value{Matrix: out}, nil
	case hop.DirCol:
		out := mat.NewDense(1, c, nil)
		for j := 0; j < c; j++ {
			out.Set(0, j, reduce(op.Op, mat.Col(nil, j, x.Matrix)))
		}
		return Value{Matrix: out}, nil
	}
	return Value{}, fmt.Errorf("unsupported direction %s", op.Dir)
}

func reduce(op hop.AggOp, vals []float64) float64 {
	switch op {
	case hop.AggSum:
		return sum(vals)
	case hop.AggMean:
		return sum(vals) / float64(len(vals))
	case hop.AggProd:
		p := 1.0
		for _, v := range vals {
			p *= v
		}
		return p
	case hop.AggMin:
		m := math.Inf(1)
		for _, v := range vals {
			m = math.Min(m, v)
		}
		return m
	case hop.AggMax:
		m := math.Inf(-1)
		for _, v := range vals {
			m = math.Max(m, v)
		}
		return m
	}
	return math.NaN()
}

func sum(vals []float64) float64 {
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s
}

func cell(op hop.OpOp2, a, b float64) float64 {
	switch op {
	case hop.OpMult:
		return a * b
	case hop.OpPlus:
		return a + b
	case hop.OpMinus:
		return a - b
	case hop.OpDiv:
		return a / b
	case hop.OpPow:
		return math.Pow(a, b)
	case hop.OpMin:
		return math.Min(a, b)
	case hop.OpMax:
		return math.Max(a, b)
	}
	return math.NaN()
}

func binary(op hop.OpOp2, a, b Value) (Value, error) {
	switch {
	case !a.IsMatrix() && !b.IsMatrix():
		return Scalar(cell(op, a.Scalar, b.Scalar)), nil
	case !a.IsMatrix():
		out := mat.DenseCopyOf(b.Matrix)
		out.Apply(func(_, _ int, v float64) float64 { return cell(op, a.Scalar, v) }, out)
		return Value{Matrix: out}, nil
	case !b.IsMatrix():
		out := mat.DenseCopyOf(a.Matrix)
		out.Apply(func(_, _ int, v float64) float64 { return cell(op, v, b.Scalar) }, out)
		return Value{Matrix: out}, nil
	}

	ar, ac := a.Matrix.Dims()
	br, bc := b.Matrix.Dims()
	var at func(i, j int) float64
	switch {
	case ar == br && ac == bc:
		at = b.Matrix.At
	case ar == br && bc == 1:
		at = func(i, _ int) float64 { return b.Matrix.At(i, 0) }
	case br == 1 && ac == bc:
		at = func(_, j int) float64 { return b.Matrix.At(0, j) }
	default:
		return Value{}, fmt.Errorf("cell-wise %s of %dx%d and %dx%d", op, ar, ac, br, bc)
	}
	out := mat.DenseCopyOf(a.Matrix)
	out.Apply(func(i, j int, v float64) float64 { return cell(op, v, at(i, j)) }, out)
	return Value{Matrix: out}, nil
}

func unaryCell(op hop.OpOp1, v float64) float64 {
	switch op {
	case hop.OpAbs:
		return math.Abs(v)
	case hop.OpSin:
		return math.Sin(v)
	case hop.OpTan:
		return math.Tan(v)
	case hop.OpSqrt:
		return math.Sqrt(v)
	case hop.OpRound:
		return math.Round(v)
	case hop.OpCos:
		return math.Cos(v)
	case hop.OpExp:
		return math.Exp(v)
	case hop.OpLog:
		return math.Log(v)
	case hop.OpNot:
		if v == 0 {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func unary(op hop.OpOp1, x Value) (Value, error) {
	switch op {
	case hop.OpCastAsScalar:
		r, c, err := dims(x)
		if err != nil {
			return Value{}, err
		}
		if r != 1 || c != 1 {
			return Value{}, fmt.Errorf("cast of %dx%d matrix to scalar", r, c)
		}
		return Scalar(x.Matrix.At(0, 0)), nil
	case hop.OpCastAsMatrix:
		if x.IsMatrix() {
			return Value{}, fmt.Errorf("cast of matrix to matrix")
		}
		return Matrix(1, 1, x.Scalar), nil
	}
	if !x.IsMatrix() {
		return Scalar(unaryCell(op, x.Scalar)), nil
	}
	out := mat.DenseCopyOf(x.Matrix)
	out.Apply(func(_, _ int, v float64) float64 { return unaryCell(op, v) }, out)
	return Value{Matrix: out}, nil
}

func reorg(op hop.ReorgOp, args []Value) (Value, error) {
	x := args[0]
	r, c, err := dims(x)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case hop.ReorgTranspose:
		return Value{Matrix: mat.DenseCopyOf(x.Matrix.T())}, nil
	case hop.ReorgDiag:
		if c == 1 {
			out := mat.NewDense(r, r, nil)
			for i := 0; i < r; i++ {
				out.Set(i, i, x.Matrix.At(i, 0))
			}
			return Value{Matrix: out}, nil
		}
		if r != c {
			return Value{}, fmt.Errorf("diag of %dx%d", r, c)
		}
		out := mat.NewDense(r, 1, nil)
		for i := 0; i < r; i++ {
			out.Set(i, 0, x.Matrix.At(i, i))
		}
		return Value{Matrix: out}, nil
	case hop.ReorgReshape:
		nr, nc, err := shape(args[1], args[2])
		if err != nil {
			return Value{}, err
		}
		if nr*nc != r*c {
			return Value{}, fmt.Errorf("reshape of %dx%d into %dx%d", r, c, nr, nc)
		}
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			data = append(data, mat.Row(nil, i, x.Matrix)...)
		}
		return Value{Matrix: mat.NewDense(nr, nc, data)}, nil
	}
	return Value{}, fmt.Errorf("unsupported reorg %s", op)
}

// span converts 1-based inclusive bounds to a 0-based half-open range.
func span(b hop.Bounds, dim int) (int, int, error) {
	if b.All {
		return 0, dim, nil
	}
	lo, hi := int(b.Lower)-1, int(b.Upper)
	if lo < 0 || hi > dim || lo >= hi {
		return 0, 0, fmt.Errorf("index %d:%d out of range 1:%d", b.Lower, b.Upper, dim)
	}
	return lo, hi, nil
}

func index(x Value, rows, cols hop.Bounds) (Value, error) {
	r, c, err := dims(x)
	if err != nil {
		return Value{}, err
	}
	rl, ru, err := span(rows, r)
	if err != nil {
		return Value{}, err
	}
	cl, cu, err := span(cols, c)
	if err != nil {
		return Value{}, err
	}
	return Value{Matrix: mat.DenseCopyOf(x.Matrix.Slice(rl, ru, cl, cu))}, nil
}

func leftIndex(x, y Value, rows, cols hop.Bounds) (Value, error) {
	r, c, err := dims(x)
	if err != nil {
		return Value{}, err
	}
	rl, ru, err := span(rows, r)
	if err != nil {
		return Value{}, err
	}
	cl, cu, err := span(cols, c)
	if err != nil {
		return Value{}, err
	}
	out := mat.DenseCopyOf(x.Matrix)
	if !y.IsMatrix() {
		for i := rl; i < ru; i++ {
			for j := cl; j < cu; j++ {
				out.Set(i, j, y.Scalar)
			}
		}
		return Value{Matrix: out}, nil
	}
	yr, yc := y.Matrix.Dims()
	if yr != ru-rl || yc != cu-cl {
		return Value{}, fmt.Errorf("assignment of %dx%d into %dx%d region", yr, yc, ru-rl, cu-cl)
	}
	out.Slice(rl, ru, cl, cu).(*mat.Dense).Copy(y.Matrix)
	return Value{Matrix: out}, nil
}
