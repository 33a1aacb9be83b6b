package hop

// Reachable returns every node reachable from roots in topological order:
// each node appears after all of its inputs. Roots are visited in the given
// order and inputs in position order, so the result is deterministic.
func Reachable(roots ...*Node) []*Node {
	seen := make(map[ID]bool)
	var order []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if seen[n.id] {
			return
		}
		seen[n.id] = true
		for _, in := range n.inputs {
			visit(in)
		}
		order = append(order, n)
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}

// CountKinds returns the number of reachable nodes per operator kind.
func CountKinds(roots ...*Node) map[string]int {
	counts := make(map[string]int)
	for _, n := range Reachable(roots...) {
		counts[n.Op.Kind()]++
	}
	return counts
}

// IsMatrixMult reports whether n is a matrix multiply.
func IsMatrixMult(n *Node) bool {
	ab, ok := n.Op.(AggBinary)
	return ok && ab.IsMatrixMult()
}

// IsReorg reports whether n is the given reorganisation.
func IsReorg(n *Node, op ReorgOp) bool {
	r, ok := n.Op.(Reorg)
	return ok && r.Op == op
}

// IsBinary reports whether n is the given cell-wise binary operation.
func IsBinary(n *Node, op OpOp2) bool {
	b, ok := n.Op.(Binary)
	return ok && b.Op == op
}

// IsLiteral reports whether n is a numeric literal equal to v.
func IsLiteral(n *Node, v float64) bool {
	val, ok := LiteralValue(n)
	return ok && val == v
}

// HasConstantValue reports whether n is a generator producing v in every
// cell.
func HasConstantValue(n *Node, v float64) bool {
	dg, ok := n.Op.(DataGen)
	return ok && dg.Value == v
}
