package hop

// DataType distinguishes scalars from matrices.
type DataType int

const (
	Matrix DataType = iota
	Scalar
)

func (t DataType) String() string {
	switch t {
	case Matrix:
		return "matrix"
	case Scalar:
		return "scalar"
	}
	return "unknown"
}

// ValueType is the element type of a scalar or matrix.
type ValueType int

const (
	Double ValueType = iota
	Int
	Boolean
	String
)

func (t ValueType) String() string {
	switch t {
	case Double:
		return "double"
	case Int:
		return "int"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	}
	return "unknown"
}

// AggOp is the reduction applied by an aggregate.
type AggOp int

const (
	AggSum AggOp = iota
	AggMin
	AggMax
	AggMean
	AggProd
	AggTrace
)

var aggOpNames = map[AggOp]string{
	AggSum:   "sum",
	AggMin:   "min",
	AggMax:   "max",
	AggMean:  "mean",
	AggProd:  "prod",
	AggTrace: "trace",
}

func (o AggOp) String() string {
	if s, ok := aggOpNames[o]; ok {
		return s
	}
	return "unknown"
}

// Direction selects which axis an aggregate collapses. Row reduces each row
// to a single value (m x 1 output), Col each column (1 x n), RowCol the whole
// matrix to a scalar.
type Direction int

const (
	DirRowCol Direction = iota
	DirRow
	DirCol
)

func (d Direction) String() string {
	switch d {
	case DirRowCol:
		return "rowcol"
	case DirRow:
		return "row"
	case DirCol:
		return "col"
	}
	return "unknown"
}

// OpOp1 is a unary operator.
type OpOp1 int

const (
	OpAbs OpOp1 = iota
	OpSin
	OpTan
	OpSqrt
	OpRound
	OpCos
	OpExp
	OpLog
	OpNot
	OpCastAsScalar
	OpCastAsMatrix
)

var opOp1Names = map[OpOp1]string{
	OpAbs:          "abs",
	OpSin:          "sin",
	OpTan:          "tan",
	OpSqrt:         "sqrt",
	OpRound:        "round",
	OpCos:          "cos",
	OpExp:          "exp",
	OpLog:          "log",
	OpNot:          "not",
	OpCastAsScalar: "castAsScalar",
	OpCastAsMatrix: "castAsMatrix",
}

func (o OpOp1) String() string {
	if s, ok := opOp1Names[o]; ok {
		return s
	}
	return "unknown"
}

// SparseSafe reports whether f(0) == 0, i.e. an all-zero input yields an
// all-zero output.
func (o OpOp1) SparseSafe() bool {
	switch o {
	case OpAbs, OpSin, OpTan, OpSqrt, OpRound:
		return true
	}
	return false
}

// OpOp2 is a binary operator.
type OpOp2 int

const (
	OpMult OpOp2 = iota
	OpPlus
	OpMinus
	OpDiv
	OpPow
	OpMin
	OpMax
)

var opOp2Names = map[OpOp2]string{
	OpMult:  "*",
	OpPlus:  "+",
	OpMinus: "-",
	OpDiv:   "/",
	OpPow:   "^",
	OpMin:   "min",
	OpMax:   "max",
}

func (o OpOp2) String() string {
	if s, ok := opOp2Names[o]; ok {
		return s
	}
	return "unknown"
}

// ReorgOp is a layout-only transformation.
type ReorgOp int

const (
	ReorgTranspose ReorgOp = iota
	ReorgDiag
	ReorgReshape
)

func (o ReorgOp) String() string {
	switch o {
	case ReorgTranspose:
		return "t"
	case ReorgDiag:
		return "diag"
	case ReorgReshape:
		return "reshape"
	}
	return "unknown"
}

// Lookup tables used by program readers. Keys are the String() forms.
var (
	AggOps     = invert(aggOpNames)
	UnaryOps   = invert(opOp1Names)
	BinaryOps  = invert(opOp2Names)
	Directions = map[string]Direction{"rowcol": DirRowCol, "row": DirRow, "col": DirCol}
	ReorgOps   = map[string]ReorgOp{"t": ReorgTranspose, "transpose": ReorgTranspose, "diag": ReorgDiag, "reshape": ReorgReshape}
	DataTypes  = map[string]DataType{"matrix": Matrix, "scalar": Scalar}
	ValueTypes = map[string]ValueType{"double": Double, "int": Int, "boolean": Boolean, "string": String}
)

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
