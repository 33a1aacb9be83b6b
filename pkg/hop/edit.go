package hop

import (
	"errors"
	"slices"
)

var (
	// ErrForeignNode is returned when an edit mixes nodes of different graphs.
	ErrForeignNode = errors.New("node belongs to a different graph")

	// ErrReleasedNode is returned when an edit or validation touches a node
	// that was already released.
	ErrReleasedNode = errors.New("node was released")

	// ErrPosition is returned when an input position is out of range.
	ErrPosition = errors.New("input position out of range")
)

// Link inserts child as parent's input at pos and registers parent as a
// consumer of child. Inputs at pos and after shift right. A pos outside
// [0, NumInputs] appends.
func Link(parent, child *Node, pos int) error {
	if err := checkEdge(parent, child); err != nil {
		return err
	}
	if pos < 0 || pos > len(parent.inputs) {
		pos = len(parent.inputs)
	}
	parent.inputs = slices.Insert(parent.inputs, pos, child)
	child.parents = append(child.parents, parent)
	return nil
}

// Unlink removes parent's input at pos and returns the former input. If the
// input lost its last parent and is not pinned, it is released together with
// every input that becomes unreachable through it.
func Unlink(parent *Node, pos int) (*Node, error) {
	if pos < 0 || pos >= len(parent.inputs) {
		return nil, ErrPosition
	}
	child := parent.inputs[pos]
	parent.inputs = slices.Delete(parent.inputs, pos, pos+1)
	child.removeParent(parent)
	if len(child.parents) == 0 {
		child.release()
	}
	return child, nil
}

// Replace swaps parent's input at pos for repl, keeping the position. The new
// edge is added before the old one is removed, so a replacement taken from
// the old input's own subgraph survives the release of the old input.
func Replace(parent *Node, pos int, repl *Node) error {
	if pos < 0 || pos >= len(parent.inputs) {
		return ErrPosition
	}
	if err := checkEdge(parent, repl); err != nil {
		return err
	}
	old := parent.inputs[pos]
	if old == repl {
		return nil
	}
	parent.inputs[pos] = repl
	repl.parents = append(repl.parents, parent)
	old.removeParent(parent)
	if len(old.parents) == 0 {
		old.release()
	}
	return nil
}

// Rehang re-links every consumer of old to repl at the same input positions
// and refreshes the size of each consumer. Nodes listed in except keep their
// edge to old (typically repl itself when repl wraps old). The parent list is
// captured before any edge changes. Rehang returns the number of re-linked
// edges.
func Rehang(old, repl *Node, except ...*Node) (int, error) {
	var parents []*Node
	for _, p := range old.Parents() {
		if p == repl || slices.Contains(except, p) || slices.Contains(parents, p) {
			continue
		}
		parents = append(parents, p)
	}

	count := 0
	for _, p := range parents {
		for i := 0; i < len(p.inputs); i++ {
			if p.inputs[i] != old {
				continue
			}
			if err := Replace(p, i, repl); err != nil {
				return count, err
			}
			count++
		}
		p.RefreshSize()
	}
	return count, nil
}

// Positions returns every input position at which parent consumes child.
func Positions(parent, child *Node) []int {
	var out []int
	for i, in := range parent.inputs {
		if in == child {
			out = append(out, i)
		}
	}
	return out
}

func checkEdge(parent, child *Node) error {
	if parent.graph != child.graph {
		return ErrForeignNode
	}
	if parent.released || child.released {
		return ErrReleasedNode
	}
	return nil
}
