package hop

import "fmt"

// Op is the operator carried by a [Node]. The set of variants is closed: the
// unexported marker method keeps other packages from adding new ones, so a
// type switch over the variants below is exhaustive.
type Op interface {
	// Kind returns a short operator label used in logs, DOT output and
	// program files.
	Kind() string
	String() string
	isOp()
}

// DataMode distinguishes variable reads from program sinks.
type DataMode int

const (
	// Read is a leaf that loads a program variable.
	Read DataMode = iota
	// Write is a root that stores its single input into a variable.
	Write
)

// Data is a variable read or write.
type Data struct {
	Mode DataMode
}

// Literal is a scalar constant. Numeric and boolean literals use Value;
// string literals use Text.
type Literal struct {
	Value float64
	Text  string
}

// DataGen is a constant matrix generator matrix(Value, rows, cols) with
// inputs [rows, cols].
type DataGen struct {
	Value float64
}

// AggUnary reduces its single input along Dir.
type AggUnary struct {
	Op  AggOp
	Dir Direction
}

// AggBinary is an aggregated binary operation; with Inner=OpMult and
// Outer=AggSum it is a matrix multiply.
type AggBinary struct {
	Inner OpOp2
	Outer AggOp
}

// IsMatrixMult reports whether a is the matrix multiply X %*% Y.
func (a AggBinary) IsMatrixMult() bool { return a.Inner == OpMult && a.Outer == AggSum }

// Binary is a cell-wise binary operation over [left, right]. A column or row
// vector on the right is broadcast over the left matrix.
type Binary struct {
	Op OpOp2
}

// Unary is a cell-wise unary operation or a data type cast.
type Unary struct {
	Op OpOp1
}

// Reorg is a layout-only transformation. Reshape takes [X, rows, cols].
type Reorg struct {
	Op ReorgOp
}

// Bounds is a 1-based inclusive index range. All selects the full extent of
// the indexed dimension; otherwise a bound <= 0 is unknown.
type Bounds struct {
	Lower int64
	Upper int64
	All   bool
}

// Span returns the bounds for lower:upper.
func Span(lower, upper int64) Bounds { return Bounds{Lower: lower, Upper: upper} }

// Full returns the bounds selecting an entire dimension.
func Full() Bounds { return Bounds{All: true} }

// Extent returns the number of selected positions given the indexed
// dimension, or -1 when it cannot be determined.
func (b Bounds) Extent(dim int64) int64 {
	if b.All {
		return dim
	}
	if b.Lower <= 0 || b.Upper < b.Lower {
		return -1
	}
	return b.Upper - b.Lower + 1
}

func (b Bounds) String() string {
	if b.All {
		return ""
	}
	return fmt.Sprintf("%d:%d", b.Lower, b.Upper)
}

// Index is right indexing X[rows, cols].
type Index struct {
	Rows Bounds
	Cols Bounds
}

// LeftIndex is left indexing X[rows, cols] = Y over [X, Y].
type LeftIndex struct {
	Rows Bounds
	Cols Bounds
}

func (Data) isOp()      {}
func (Literal) isOp()   {}
func (DataGen) isOp()   {}
func (AggUnary) isOp()  {}
func (AggBinary) isOp() {}
func (Binary) isOp()    {}
func (Unary) isOp()     {}
func (Reorg) isOp()     {}
func (Index) isOp()     {}
func (LeftIndex) isOp() {}

func (d Data) Kind() string {
	if d.Mode == Write {
		return "write"
	}
	return "read"
}
func (Literal) Kind() string   { return "literal" }
func (DataGen) Kind() string   { return "datagen" }
func (AggUnary) Kind() string  { return "agg" }
func (AggBinary) Kind() string { return "matmult" }
func (Binary) Kind() string    { return "binary" }
func (Unary) Kind() string     { return "unary" }
func (Reorg) Kind() string     { return "reorg" }
func (Index) Kind() string     { return "index" }
func (LeftIndex) Kind() string { return "leftindex" }

func (d Data) String() string { return d.Kind() }

func (l Literal) String() string {
	if l.Text != "" {
		return fmt.Sprintf("%q", l.Text)
	}
	return fmt.Sprintf("%g", l.Value)
}

func (d DataGen) String() string { return fmt.Sprintf("matrix(%g)", d.Value) }

func (a AggUnary) String() string {
	switch a.Dir {
	case DirRow:
		return "row" + a.Op.String()
	case DirCol:
		return "col" + a.Op.String()
	}
	return a.Op.String()
}

func (a AggBinary) String() string {
	if a.IsMatrixMult() {
		return "%*%"
	}
	return fmt.Sprintf("ba(%s,%s)", a.Outer, a.Inner)
}

func (b Binary) String() string    { return b.Op.String() }
func (u Unary) String() string     { return u.Op.String() }
func (r Reorg) String() string     { return r.Op.String() }
func (i Index) String() string     { return fmt.Sprintf("[%s,%s]", i.Rows, i.Cols) }
func (l LeftIndex) String() string { return fmt.Sprintf("[%s,%s]=", l.Rows, l.Cols) }
