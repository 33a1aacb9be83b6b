// Package eval computes the value of operator DAGs for concrete inputs.
//
// It is a reference interpreter used to check that rewrites preserve
// semantics: evaluate a sink before and after rewriting and compare. It
// favours clarity over speed and is not meant for production workloads.
//
// Cell-wise binary operations take the shape of the left operand. A right
// operand that is a column vector (rows x 1) or a row vector (1 x cols) is
// broadcast across the left matrix.
package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

// Value is a scalar or a matrix. Matrix is nil for scalars.
type Value struct {
	Scalar float64
	Matrix *mat.Dense
}

// IsMatrix reports whether v holds a matrix.
func (v Value) IsMatrix() bool { return v.Matrix != nil }

func (v Value) String() string {
	if v.Matrix == nil {
		return fmt.Sprintf("%g", v.Scalar)
	}
	return fmt.Sprintf("%v", mat.Formatted(v.Matrix, mat.Squeeze()))
}

// Scalar wraps s.
func Scalar(s float64) Value { return Value{Scalar: s} }

// Matrix builds a rows x cols matrix from row-major data. With no data the
// matrix is all zero.
func Matrix(rows, cols int, data ...float64) Value {
	return Value{Matrix: mat.NewDense(rows, cols, data)}
}

// Env binds variable reads by name.
type Env map[string]Value

// Evaluate computes the value of n. Shared subexpressions are evaluated
// once.
func Evaluate(n *hop.Node, env Env) (Value, error) {
	e := &evaluator{env: env, memo: make(map[hop.ID]Value)}
	return e.eval(n)
}

// Equal reports whether a and b are both scalars or both matrices of the
// same shape with values within tol of each other.
func Equal(a, b Value, tol float64) bool {
	if a.IsMatrix() != b.IsMatrix() {
		return false
	}
	if !a.IsMatrix() {
		return math.Abs(a.Scalar-b.Scalar) <= tol
	}
	ar, ac := a.Matrix.Dims()
	br, bc := b.Matrix.Dims()
	if ar != br || ac != bc {
		return false
	}
	return mat.EqualApprox(a.Matrix, b.Matrix, tol)
}

type evaluator struct {
	env  Env
	memo map[hop.ID]Value
}

func (e *evaluator) eval(n *hop.Node) (Value, error) {
	if v, ok := e.memo[n.ID()]; ok {
		return v, nil
	}
	if err := hop.CheckArity(n); err != nil {
		return Value{}, err
	}
	args := make([]Value, n.NumInputs())
	for i, in := range n.Inputs() {
		v, err := e.eval(in)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	v, err := e.apply(n, args)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", n, err)
	}
	e.memo[n.ID()] = v
	return v, nil
}

func (e *evaluator) apply(n *hop.Node, args []Value) (Value, error) {
	switch op := n.Op.(type) {
	case hop.Data:
		if op.Mode == hop.Write {
			return args[0], nil
		}
		v, ok := e.env[n.Name]
		if !ok {
			return Value{}, fmt.Errorf("variable %q is not bound", n.Name)
		}
		return v, nil
	case hop.Literal:
		return Scalar(op.Value), nil
	case hop.DataGen:
		return generate(args[0], args[1], op.Value)
	case hop.AggUnary:
		return aggregate(op, args[0])
	case hop.AggBinary:
		if !op.IsMatrixMult() {
			return Value{}, fmt.Errorf("unsupported aggregate binary %s", op)
		}
		return matMult(args[0], args[1])
	case hop.Binary:
		return binary(op.Op, args[0], args[1])
	case hop.Unary:
		return unary(op.Op, args[0])
	case hop.Reorg:
		return reorg(op.Op, args)
	case hop.Index:
		return index(args[0], op.Rows, op.Cols)
	case hop.LeftIndex:
		return leftIndex(args[0], args[1], op.Rows, op.Cols)
	}
	return Value{}, fmt.Errorf("unsupported operator %T", n.Op)
}

func dims(v Value) (int, int, error) {
	if !v.IsMatrix() {
		return 0, 0, fmt.Errorf("expected a matrix, got scalar %g", v.Scalar)
	}
	r, c := v.Matrix.Dims()
	return r, c, nil
}

func shape(rows, cols Value) (int, int, error) {
	if rows.IsMatrix() || cols.IsMatrix() {
		return 0, 0, fmt.Errorf("shape arguments must be scalars")
	}
	r, c := int(rows.Scalar), int(cols.Scalar)
	if r <= 0 || c <= 0 {
		return 0, 0, fmt.Errorf("invalid shape %dx%d", r, c)
	}
	return r, c, nil
}

func generate(rows, cols Value, value float64) (Value, error) {
	r, c, err := shape(rows, cols)
	if err != nil {
		return Value{}, err
	}
	m := mat.NewDense(r, c, nil)
	if value != 0 {
		m.Apply(func(_, _ int, _ float64) float64 { return value }, m)
	}
	return Value{Matrix: m}, nil
}

func matMult(a, b Value) (Value, error) {
	ar, ac, err := dims(a)
	if err != nil {
		return Value{}, err
	}
	br, bc, err := dims(b)
	if err != nil {
		return Value{}, err
	}
	if ac != br {
		return Value{}, fmt.Errorf("matrix multiply of %dx%d and %dx%d", ar, ac, br, bc)
	}
	var m mat.Dense
	m.Mul(a.Matrix, b.Matrix)
	return Value{Matrix: &m}, nil
}
