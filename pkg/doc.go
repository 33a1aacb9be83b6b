// Package pkg provides the core libraries for dmlopt, an algebraic
// simplification pass over linear-algebra operator DAGs.
//
// # Overview
//
// A program is a DAG of high-level operators (reads, writes, literals, data
// generators, aggregates, matrix multiplication, cell-wise binary and unary
// operations, reorganizations and indexing) annotated with size facts: rows,
// columns and non-zero counts. The rewriter walks the DAG and replaces
// sub-expressions with cheaper equivalents whenever the size facts prove it
// safe, for example an aggregate over an all-zero matrix becomes a zero
// generator. The pkg directory is organized into these areas:
//
//  1. [hop] - Operator graph, size propagation, edit primitives, validation
//  2. [hop/rewrite] - Visitation controller and the rewrite rule catalog
//  3. [io] - Program files in JSON, TOML and YAML
//  4. [pipeline] - Orchestration (load → hash → cache → rewrite → export)
//  5. [cache], [observability], [render] - Supporting infrastructure
//
// # Architecture
//
// The typical data flow through dmlopt:
//
//	Program file (json/toml/yaml)
//	         ↓
//	    [io] package (decode + build the DAG)
//	         ↓
//	    [hop/rewrite] package (apply rules in place)
//	         ↓
//	    [io] package (encode the live DAG)
//	         ↓
//	Optimized program, or a drawing via [render/nodelink]
//
// # Quick Start
//
// Build a DAG and simplify it:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/dmlopt/pkg/hop"
//	    "github.com/matzehuels/dmlopt/pkg/hop/rewrite"
//	)
//
//	g := hop.NewGraph()
//	x := g.Read("X", 1000, 1000, 0) // known to be all zeros
//	out := g.Write("R", g.Agg(hop.AggSum, hop.DirCol, x))
//
//	stats, err := rewrite.New().Run(context.Background(), []*hop.Node{out})
//	// out now reads from matrix(0) with 1x1000 cells.
//
// # Main Packages
//
// [hop] - Operator nodes with ordered parent and child lists, size facts and
// the edit primitives rules use to splice the DAG. [hop.Validate] checks
// acyclicity, link symmetry and fact consistency.
//
// [hop/rewrite] - Depth-first, post-order visitation of every reachable
// node exactly once per pass, applying the enabled rules in a fixed order.
// Rules can be disabled by name.
//
// [hop/eval] - Dense reference evaluator. Tests use it to show that a
// rewritten DAG computes the same values as the original.
//
// [io] - Program file format shared by the CLI and the HTTP service.
//
// [pipeline] - Concurrent optimization of many programs with result caching,
// used by both the CLI and the HTTP service so they produce identical output.
//
// [cache] - Null, file and Redis result caches with content-addressed keys.
//
// [observability] - Hooks for rewrite, pipeline, cache and HTTP events with a
// Prometheus implementation in [observability/prom].
//
// [render/nodelink] - Graphviz drawings of operator DAGs (DOT, SVG, PNG).
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/hop/rewrite/...        # Specific package
//	go test -run Example                 # Examples only
//
// [hop]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/hop
// [hop/rewrite]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/hop/rewrite
// [hop/eval]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/hop/eval
// [hop.Validate]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/hop#Validate
// [io]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/observability/prom
// [render]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/dmlopt/pkg/render/nodelink
package pkg
