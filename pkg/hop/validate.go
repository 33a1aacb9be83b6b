package hop

import (
	"errors"
	"fmt"
)

var (
	// ErrGraphHasCycle is returned by [Validate] when a directed cycle is
	// reachable from the roots.
	ErrGraphHasCycle = errors.New("graph contains a cycle")

	// ErrBrokenBackReference is returned by [Validate] when an input edge is
	// not mirrored by exactly one parent entry.
	ErrBrokenBackReference = errors.New("inputs and parents disagree")

	// ErrArity is returned when a node has the wrong number of inputs for
	// its operator.
	ErrArity = errors.New("wrong number of inputs")

	// ErrInvalidSize is returned when known dimensions are negative or a
	// known non-zero count exceeds rows*cols.
	ErrInvalidSize = errors.New("invalid size metadata")
)

// Arity returns the number of inputs an operator takes. Reshape is the only
// operator with more than two.
func Arity(op Op) int {
	switch o := op.(type) {
	case Data:
		if o.Mode == Write {
			return 1
		}
		return 0
	case Literal:
		return 0
	case DataGen, AggBinary, Binary, LeftIndex:
		return 2
	case Reorg:
		if o.Op == ReorgReshape {
			return 3
		}
		return 1
	case AggUnary, Unary, Index:
		return 1
	}
	return -1
}

// CheckArity returns an error wrapping [ErrArity] if n does not have the
// number of inputs its operator requires.
func CheckArity(n *Node) error {
	if want := Arity(n.Op); want != len(n.inputs) {
		return fmt.Errorf("%s: %w: have %d, want %d", n, ErrArity, len(n.inputs), want)
	}
	return nil
}

// Validate checks the subgraph reachable from roots: it must be acyclic,
// contain no released nodes, have consistent input/parent references, the
// right arity for every operator and well-formed size metadata.
//
// Cycle detection runs in O(N+E) time using depth-first search.
func Validate(roots ...*Node) error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[ID]int)
	var visit func(n *Node) error
	visit = func(n *Node) error {
		color[n.id] = gray
		if err := checkNode(n); err != nil {
			return err
		}
		for _, in := range n.inputs {
			switch color[in.id] {
			case white:
				if err := visit(in); err != nil {
					return err
				}
			case gray:
				return fmt.Errorf("%s -> %s: %w", n, in, ErrGraphHasCycle)
			}
		}
		color[n.id] = black
		return nil
	}

	for _, r := range roots {
		if color[r.id] == white {
			if err := visit(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkNode(n *Node) error {
	if n.released {
		return fmt.Errorf("%s: %w", n, ErrReleasedNode)
	}
	if err := CheckArity(n); err != nil {
		return err
	}
	for _, in := range n.inputs {
		if count(n.inputs, in) != count(in.parents, n) {
			return fmt.Errorf("%s -> %s: %w", n, in, ErrBrokenBackReference)
		}
	}
	for _, p := range n.parents {
		if count(p.inputs, n) == 0 {
			return fmt.Errorf("%s <- %s: %w", n, p, ErrBrokenBackReference)
		}
	}
	if n.Rows < Unknown || n.Cols < Unknown || n.Nnz < Unknown {
		return fmt.Errorf("%s: %w: %dx%d nnz=%d", n, ErrInvalidSize, n.Rows, n.Cols, n.Nnz)
	}
	if n.IsMatrix() && n.DimsKnown() && n.Nnz > n.Rows*n.Cols {
		return fmt.Errorf("%s: %w: nnz=%d exceeds %dx%d", n, ErrInvalidSize, n.Nnz, n.Rows, n.Cols)
	}
	return nil
}

func count(nodes []*Node, target *Node) int {
	c := 0
	for _, n := range nodes {
		if n == target {
			c++
		}
	}
	return c
}
