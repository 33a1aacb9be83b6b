// Package rewrite implements dynamic algebraic simplification of operator
// DAGs.
//
// # Overview
//
// A [Rewriter] walks the DAG reachable from a set of program roots and
// replaces subexpressions with cheaper equivalents whenever the static size
// and sparsity facts of the graph prove the rewrite safe. Typical examples
// are dropping indexing that selects a whole matrix, turning aggregates of
// provably empty matrices into constants and hoisting a negation above a
// matrix multiply.
//
// Rewrites are local: every rule looks at one input edge (parent, child,
// position) and either leaves the child alone or links a replacement at the
// same position. Rules that replace a node consumed by several parents
// re-link all of them.
//
// # Passes
//
// Each invocation runs two passes over the roots:
//
//  1. Top-down: the rules are applied to a child before descending into it,
//     so patterns created by a rewrite are seen by the recursive call.
//  2. Bottom-up: the rules are applied to a child after its own subtree was
//     simplified, which enables rewrites that depend on canonicalized inputs.
//
// Each pass processes a shared node once regardless of how many parents it
// has. Running the rewriter again on its own output performs no edits.
//
// # Rules
//
// The catalog returned by [DefaultRules] is applied in a fixed order; later
// rules rely on patterns exposed by earlier ones. [Without] removes rules by
// name while keeping the order of the rest.
//
// Rules never guess: if a fact they depend on is unknown the rule does not
// fire. If the graph contradicts a matched pattern, the rule returns a
// [*RuleError] whose code is STRUCTURAL_INCONSISTENCY and the invocation
// stops. Edits already applied stay in place since each of them preserves
// semantics on its own.
//
// # Usage
//
//	g := hop.NewGraph()
//	x := g.Read("X", 5, 1, hop.Unknown)
//	w := g.Write("R", g.Agg(hop.AggSum, hop.DirCol, x))
//
//	r := rewrite.New(rewrite.WithLogger(logger))
//	stats, err := r.Run(ctx, []*hop.Node{w})
//	// w.Input(0) is now castAsMatrix(sum(X))
package rewrite
