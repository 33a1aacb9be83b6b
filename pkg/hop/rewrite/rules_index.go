package rewrite

import (
	"context"

	"github.com/matzehuels/dmlopt/pkg/hop"
)

// X[r,c] -> matrix(0, nrow, ncol) if X is empty.
func removeEmptyRightIndexing(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if _, ok := hi.Op.(hop.Index); !ok {
		return hi, false, nil
	}
	if err := checkArity(RemoveEmptyRightIndexing, hi); err != nil {
		return hi, false, err
	}
	if !hi.Input(0).IsEmpty() || !hi.DimsKnown() {
		return hi, false, nil
	}
	z := zeros(hi.Graph(), hi.Rows, hi.Cols, hi)
	return replaceWith(RemoveEmptyRightIndexing, parent, pos, hi, z)
}

// X[r,c] -> X if the selection covers all of X.
func removeUnnecessaryRightIndexing(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if _, ok := hi.Op.(hop.Index); !ok {
		return hi, false, nil
	}
	if err := checkArity(RemoveUnnecessaryRightIndexing, hi); err != nil {
		return hi, false, err
	}
	in := hi.Input(0)
	if !hi.SameSize(in) {
		return hi, false, nil
	}
	return replaceWith(RemoveUnnecessaryRightIndexing, parent, pos, hi, in)
}

// X[r,c] = Y -> matrix(0, nrow(X), ncol(X)) if X and Y are empty.
func removeEmptyLeftIndexing(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if _, ok := hi.Op.(hop.LeftIndex); !ok {
		return hi, false, nil
	}
	if err := checkArity(RemoveEmptyLeftIndexing, hi); err != nil {
		return hi, false, err
	}
	x, y := hi.Input(0), hi.Input(1)
	if !x.IsEmpty() || !y.IsEmpty() || !x.DimsKnown() {
		return hi, false, nil
	}
	z := zeros(hi.Graph(), x.Rows, x.Cols, x)
	return replaceWith(RemoveEmptyLeftIndexing, parent, pos, hi, z)
}

// X[r,c] = Y -> Y if Y overwrites all of X.
func removeUnnecessaryLeftIndexing(_ context.Context, parent, hi *hop.Node, pos int) (*hop.Node, bool, error) {
	if _, ok := hi.Op.(hop.LeftIndex); !ok {
		return hi, false, nil
	}
	if err := checkArity(RemoveUnnecessaryLeftIndexing, hi); err != nil {
		return hi, false, err
	}
	y := hi.Input(1)
	if !y.IsMatrix() || !hi.SameSize(y) {
		return hi, false, nil
	}
	return replaceWith(RemoveUnnecessaryLeftIndexing, parent, pos, hi, y)
}
