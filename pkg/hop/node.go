package hop

import (
	"cmp"
	"fmt"
	"slices"
)

// Unknown marks a dimension or non-zero count that is not statically known.
const Unknown int64 = -1

// DefaultBlockSize is the block tiling used when no input provides one.
const DefaultBlockSize int64 = 1000

// ID is the stable identity of a node within its [Graph]. IDs are never
// reused, so they are safe keys for visited sets across edits.
type ID uint64

// Node is one operator of the DAG together with its static output metadata.
//
// The exported fields are the size/sparsity facts produced by upstream
// inference and refreshed by [Node.RefreshSize]. Edges are only changed
// through the edit primitives in this package so that inputs and parents
// always mirror each other.
type Node struct {
	Name      string
	DataType  DataType
	ValueType ValueType

	Rows         int64 // -1 if unknown
	Cols         int64 // -1 if unknown
	RowsPerBlock int64
	ColsPerBlock int64
	Nnz          int64 // -1 if unknown, 0 if provably empty

	Op Op

	id       ID
	graph    *Graph
	inputs   []*Node
	parents  []*Node // one entry per incoming edge
	pins     int
	released bool
}

// ID returns the node's stable identity.
func (n *Node) ID() ID { return n.id }

// Graph returns the graph that owns the node.
func (n *Node) Graph() *Graph { return n.graph }

// Inputs returns the positional inputs. The slice is a read-only view;
// use [Link], [Unlink] or [Replace] to change it.
func (n *Node) Inputs() []*Node { return n.inputs }

// Input returns the input at position i, or nil if there is none.
func (n *Node) Input(i int) *Node {
	if i < 0 || i >= len(n.inputs) {
		return nil
	}
	return n.inputs[i]
}

// NumInputs returns the number of inputs.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Parents returns a snapshot of the nodes consuming n, one entry per edge.
// The snapshot is not affected by later edits, which makes it safe to range
// over while re-linking parents.
func (n *Node) Parents() []*Node { return slices.Clone(n.parents) }

// NumParents returns the number of incoming edges.
func (n *Node) NumParents() int { return len(n.parents) }

// Released reports whether the node was dropped from its graph after losing
// its last parent.
func (n *Node) Released() bool { return n.released }

// DimsKnown reports whether both dimensions are known.
func (n *Node) DimsKnown() bool { return n.Rows >= 0 && n.Cols >= 0 }

// IsEmpty reports whether the node is provably all-zero.
func (n *Node) IsEmpty() bool { return n.Nnz == 0 }

// IsMatrix reports whether the node produces a matrix.
func (n *Node) IsMatrix() bool { return n.DataType == Matrix }

// IsScalar reports whether the node produces a scalar.
func (n *Node) IsScalar() bool { return n.DataType == Scalar }

// SameSize reports whether both nodes have known and equal dimensions.
func (n *Node) SameSize(o *Node) bool {
	return n.DimsKnown() && o.DimsKnown() && n.Rows == o.Rows && n.Cols == o.Cols
}

// Is1x1 reports whether the node is statically a 1x1 matrix.
func (n *Node) Is1x1() bool { return n.DimsKnown() && n.Rows == 1 && n.Cols == 1 }

func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s#%d(%s)", n.Op, n.id, n.Name)
	}
	return fmt.Sprintf("%s#%d", n.Op, n.id)
}

func (n *Node) removeParent(p *Node) {
	if i := slices.Index(n.parents, p); i >= 0 {
		n.parents = slices.Delete(n.parents, i, i+1)
	}
}

// Pinned reports whether n is held live by [Pin] regardless of its parents.
func (n *Node) Pinned() bool { return n.pins > 0 }

// Pin keeps the given nodes live while they have no parents, so that a node
// used as an output handle survives edits that detach it from its consumers.
// The returned function removes the pins again. Nil nodes are ignored and
// pins nest.
func Pin(nodes ...*Node) (unpin func()) {
	var pinned []*Node
	for _, n := range nodes {
		if n != nil {
			n.pins++
			pinned = append(pinned, n)
		}
	}
	return func() {
		for _, n := range pinned {
			n.pins--
		}
		pinned = nil
	}
}

// release drops n from its graph and removes its input edges, releasing
// every input that loses its last parent in turn. Pinned nodes stay.
func (n *Node) release() {
	if n.released || n.pins > 0 {
		return
	}
	n.released = true
	delete(n.graph.nodes, n.id)

	inputs := n.inputs
	n.inputs = nil
	for _, in := range inputs {
		in.removeParent(n)
		if len(in.parents) == 0 {
			in.release()
		}
	}
}

// Graph allocates node identities and tracks the nodes that are still live.
//
// The zero value is not usable - use NewGraph. A Graph is not safe for
// concurrent use.
type Graph struct {
	next  ID
	nodes map[ID]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[ID]*Node)}
}

// Node returns the live node with the given ID.
func (g *Graph) Node(id ID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Live returns the number of live (not released) nodes.
func (g *Graph) Live() int { return len(g.nodes) }

// Nodes returns all live nodes ordered by ID.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.id, b.id) })
	return nodes
}

// Discard releases a node that was built but never attached to a parent.
// It is a no-op for nodes that still have parents.
func (g *Graph) Discard(n *Node) {
	if n != nil && n.graph == g && len(n.parents) == 0 {
		n.release()
	}
}

func (g *Graph) newNode(op Op, dt DataType, vt ValueType) *Node {
	g.next++
	n := &Node{
		id:           g.next,
		graph:        g,
		Op:           op,
		DataType:     dt,
		ValueType:    vt,
		Rows:         Unknown,
		Cols:         Unknown,
		Nnz:          Unknown,
		RowsPerBlock: DefaultBlockSize,
		ColsPerBlock: DefaultBlockSize,
	}
	g.nodes[n.id] = n
	return n
}
