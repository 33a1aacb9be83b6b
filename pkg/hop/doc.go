// Package hop provides the operator DAG ("high-level operators") that the
// algebraic simplification pass rewrites.
//
// # Overview
//
// A linear-algebra program fragment is represented as a directed acyclic
// graph of [Node] values. Each node denotes one operation (matrix multiply,
// aggregate, cell-wise binary, ...) together with its statically known
// output shape and sparsity. Nodes are shared: a sub-expression consumed by
// several operators is a single node with several parents.
//
// # Basic Usage
//
// Nodes are created through a [Graph], which allocates stable identities and
// keeps a registry of live nodes:
//
//	g := hop.NewGraph()
//	x := g.Read("X", 5, 5, 0)           // 5x5 matrix, provably empty
//	s := g.Agg(hop.AggSum, hop.DirCol, x) // colSums(X)
//	w := g.Write("R", s)                // program sink
//
// Inputs are positional ([Node.Inputs]); parents are a multiset of
// back-references ([Node.Parents]) with one entry per edge.
//
// # Operators
//
// [Op] is a closed set of variants ([Data], [Literal], [DataGen], [AggUnary],
// [AggBinary], [Binary], [Unary], [Reorg], [Index], [LeftIndex]). Code that
// needs kind-specific behaviour type-switches over the variants; no other
// package can add one.
//
// # Editing
//
// Structural edits go through [Link], [Unlink], [Replace] and [Rehang]. A node
// whose last parent edge is removed is released: it leaves the graph registry
// and drops its own input edges, which may in turn release its inputs. This
// cascade is explicit and deterministic (depth-first, in input order) so tests
// can assert exactly which nodes survive an edit.
//
// After an edit, [Node.RefreshSize] recomputes a node's shape and sparsity
// from its inputs with operator-specific formulas. Unknown facts are -1.
//
// # Concurrency
//
// Graphs are not safe for concurrent use. Independent graphs may be edited
// from different goroutines.
package hop
