package hop

// Read creates a matrix variable read with the given shape and non-zero
// count (use [Unknown] for facts that are not known).
func (g *Graph) Read(name string, rows, cols, nnz int64) *Node {
	n := g.newNode(Data{Mode: Read}, Matrix, Double)
	n.Name = name
	n.Rows, n.Cols, n.Nnz = rows, cols, nnz
	return n
}

// ReadScalar creates a scalar variable read.
func (g *Graph) ReadScalar(name string, vt ValueType) *Node {
	n := g.newNode(Data{Mode: Read}, Scalar, vt)
	n.Name = name
	n.Rows, n.Cols = 0, 0
	return n
}

// Write creates a program sink storing in into the named variable.
func (g *Graph) Write(name string, in *Node) *Node {
	n := g.newNode(Data{Mode: Write}, in.DataType, in.ValueType)
	n.Name = name
	g.attach(n, in)
	return n
}

// Literal creates a double scalar constant.
func (g *Graph) Literal(v float64) *Node {
	n := g.newNode(Literal{Value: v}, Scalar, Double)
	n.Rows, n.Cols = 0, 0
	return n
}

// IntLiteral creates an integer scalar constant.
func (g *Graph) IntLiteral(v int64) *Node {
	n := g.newNode(Literal{Value: float64(v)}, Scalar, Int)
	n.Rows, n.Cols = 0, 0
	return n
}

// DataGen creates matrix(value, rows, cols) with literal dimensions.
func (g *Graph) DataGen(rows, cols int64, value float64) *Node {
	return g.DataGenFrom(g.IntLiteral(rows), g.IntLiteral(cols), value)
}

// DataGenFrom creates matrix(value, rows, cols) with the dimensions given as
// scalar expressions.
func (g *Graph) DataGenFrom(rows, cols *Node, value float64) *Node {
	n := g.newNode(DataGen{Value: value}, Matrix, Double)
	g.attach(n, rows, cols)
	return n
}

// Agg creates an aggregate of in along dir.
func (g *Graph) Agg(op AggOp, dir Direction, in *Node) *Node {
	dt := Matrix
	if dir == DirRowCol {
		dt = Scalar
	}
	n := g.newNode(AggUnary{Op: op, Dir: dir}, dt, Double)
	g.attach(n, in)
	return n
}

// MatMult creates left %*% right.
func (g *Graph) MatMult(left, right *Node) *Node {
	n := g.newNode(AggBinary{Inner: OpMult, Outer: AggSum}, Matrix, Double)
	g.attach(n, left, right)
	return n
}

// Binary creates the cell-wise operation left op right.
func (g *Graph) Binary(op OpOp2, left, right *Node) *Node {
	dt := Matrix
	if left.IsScalar() && right.IsScalar() {
		dt = Scalar
	}
	n := g.newNode(Binary{Op: op}, dt, Double)
	g.attach(n, left, right)
	return n
}

// Unary creates op(in). Casts change the data type; other operators keep the
// data type of in.
func (g *Graph) Unary(op OpOp1, in *Node) *Node {
	dt := in.DataType
	switch op {
	case OpCastAsScalar:
		dt = Scalar
	case OpCastAsMatrix:
		dt = Matrix
	}
	n := g.newNode(Unary{Op: op}, dt, Double)
	g.attach(n, in)
	return n
}

// Transpose creates t(in).
func (g *Graph) Transpose(in *Node) *Node {
	n := g.newNode(Reorg{Op: ReorgTranspose}, Matrix, in.ValueType)
	g.attach(n, in)
	return n
}

// Diag creates diag(in): a column vector becomes a diagonal matrix, a square
// matrix yields its diagonal as a column vector.
func (g *Graph) Diag(in *Node) *Node {
	n := g.newNode(Reorg{Op: ReorgDiag}, Matrix, in.ValueType)
	g.attach(n, in)
	return n
}

// Reshape creates matrix(in, rows, cols) in row-major order.
func (g *Graph) Reshape(in, rows, cols *Node) *Node {
	n := g.newNode(Reorg{Op: ReorgReshape}, Matrix, in.ValueType)
	g.attach(n, in, rows, cols)
	return n
}

// Index creates the right indexing in[rows, cols].
func (g *Graph) Index(in *Node, rows, cols Bounds) *Node {
	n := g.newNode(Index{Rows: rows, Cols: cols}, Matrix, in.ValueType)
	g.attach(n, in)
	return n
}

// LeftIndex creates the left indexing x[rows, cols] = y.
func (g *Graph) LeftIndex(x, y *Node, rows, cols Bounds) *Node {
	n := g.newNode(LeftIndex{Rows: rows, Cols: cols}, Matrix, x.ValueType)
	g.attach(n, x, y)
	return n
}

// New creates a node with an arbitrary operator and inputs. It is used by
// program readers; builders above are preferred in code.
func (g *Graph) New(op Op, dt DataType, vt ValueType, inputs ...*Node) *Node {
	n := g.newNode(op, dt, vt)
	if d, ok := op.(Data); ok && d.Mode == Read {
		return n
	}
	g.attach(n, inputs...)
	return n
}

// attach links inputs in order, inherits block sizes from the first matrix
// input and computes the output size.
func (g *Graph) attach(n *Node, inputs ...*Node) {
	for i, in := range inputs {
		_ = Link(n, in, i)
	}
	for _, in := range inputs {
		if in.IsMatrix() {
			n.RowsPerBlock, n.ColsPerBlock = in.RowsPerBlock, in.ColsPerBlock
			break
		}
	}
	n.RefreshSize()
}
