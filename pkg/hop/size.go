package hop

// RefreshSize recomputes the node's output dimensions and non-zero count from
// its inputs. Facts that cannot be derived are set to [Unknown]; the
// non-zero count is only kept when it is provable (zero propagation through
// sparse-safe operators, layout-only reorganisations, constant generators).
//
// Variable reads keep the facts supplied by upstream inference.
func (n *Node) RefreshSize() {
	if n.released {
		return
	}
	switch op := n.Op.(type) {
	case Data:
		if op.Mode == Write && len(n.inputs) == 1 {
			n.copySize(n.inputs[0])
		}
	case Literal:
		n.Rows, n.Cols, n.Nnz = 0, 0, Unknown
	case DataGen:
		n.refreshDataGen(op)
	case AggUnary:
		n.refreshAggUnary(op)
	case AggBinary:
		n.refreshAggBinary()
	case Binary:
		n.refreshBinary()
	case Unary:
		n.refreshUnary(op)
	case Reorg:
		n.refreshReorg(op)
	case Index:
		n.refreshIndex(op)
	case LeftIndex:
		n.refreshLeftIndex()
	}
}

func (n *Node) copySize(in *Node) {
	n.Rows, n.Cols, n.Nnz = in.Rows, in.Cols, in.Nnz
}

func (n *Node) setDims(rows, cols int64) {
	n.Rows, n.Cols = rows, cols
	n.Nnz = Unknown
}

func (n *Node) refreshDataGen(op DataGen) {
	rows, okR := LiteralInt(n.Input(0))
	cols, okC := LiteralInt(n.Input(1))
	if !okR {
		rows = Unknown
	}
	if !okC {
		cols = Unknown
	}
	n.setDims(rows, cols)
	switch {
	case op.Value == 0:
		n.Nnz = 0
	case n.DimsKnown():
		n.Nnz = rows * cols
	}
}

func (n *Node) refreshAggUnary(op AggUnary) {
	in := n.Input(0)
	if in == nil {
		return
	}
	switch op.Dir {
	case DirRowCol:
		n.setDims(0, 0)
	case DirRow:
		n.setDims(in.Rows, 1)
	case DirCol:
		n.setDims(1, in.Cols)
	}
}

func (n *Node) refreshAggBinary() {
	left, right := n.Input(0), n.Input(1)
	if left == nil || right == nil {
		return
	}
	n.setDims(left.Rows, right.Cols)
}

// refreshBinary sizes a cell-wise operation by its matrix operand; with two
// matrices the left one determines the output (vectors broadcast on the
// right).
func (n *Node) refreshBinary() {
	left, right := n.Input(0), n.Input(1)
	if left == nil || right == nil {
		return
	}
	switch {
	case left.IsMatrix():
		n.setDims(left.Rows, left.Cols)
	case right.IsMatrix():
		n.setDims(right.Rows, right.Cols)
	default:
		n.setDims(0, 0)
	}
}

func (n *Node) refreshUnary(op Unary) {
	in := n.Input(0)
	if in == nil {
		return
	}
	switch op.Op {
	case OpCastAsScalar:
		n.setDims(0, 0)
	case OpCastAsMatrix:
		n.setDims(1, 1)
	default:
		n.setDims(in.Rows, in.Cols)
		if op.Op.SparseSafe() && in.Nnz == 0 {
			n.Nnz = 0
		}
	}
}

func (n *Node) refreshReorg(op Reorg) {
	in := n.Input(0)
	if in == nil {
		return
	}
	switch op.Op {
	case ReorgTranspose:
		n.setDims(in.Cols, in.Rows)
	case ReorgDiag:
		switch {
		case in.Cols == 1:
			n.setDims(in.Rows, in.Rows)
		case in.DimsKnown():
			n.setDims(in.Rows, 1)
		default:
			n.setDims(Unknown, Unknown)
		}
	case ReorgReshape:
		rows, okR := LiteralInt(n.Input(1))
		cols, okC := LiteralInt(n.Input(2))
		if !okR {
			rows = Unknown
		}
		if !okC {
			cols = Unknown
		}
		n.setDims(rows, cols)
	}
	n.Nnz = in.Nnz
}

func (n *Node) refreshIndex(op Index) {
	in := n.Input(0)
	if in == nil {
		return
	}
	n.setDims(op.Rows.Extent(in.Rows), op.Cols.Extent(in.Cols))
	if in.Nnz == 0 {
		n.Nnz = 0
	}
}

func (n *Node) refreshLeftIndex() {
	x, y := n.Input(0), n.Input(1)
	if x == nil || y == nil {
		return
	}
	n.setDims(x.Rows, x.Cols)
	if x.Nnz == 0 && y.Nnz == 0 {
		n.Nnz = 0
	}
}

// LiteralInt returns the integral value of a scalar literal.
func LiteralInt(n *Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	lit, ok := n.Op.(Literal)
	if !ok || lit.Text != "" {
		return 0, false
	}
	return int64(lit.Value), true
}

// LiteralValue returns the numeric value of a scalar literal.
func LiteralValue(n *Node) (float64, bool) {
	if n == nil {
		return 0, false
	}
	lit, ok := n.Op.(Literal)
	if !ok || lit.Text != "" {
		return 0, false
	}
	return lit.Value, true
}
