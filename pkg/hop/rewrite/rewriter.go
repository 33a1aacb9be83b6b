package rewrite

import (
	"context"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dmlopt/pkg/hop"
	"github.com/matzehuels/dmlopt/pkg/observability"
)

// Pass names reported in [Stats] and to observability hooks.
const (
	PassTopDown  = "top-down"
	PassBottomUp = "bottom-up"
)

// Rewriter applies an ordered rule list to operator DAGs.
//
// A Rewriter holds configuration only. It may be used from several
// goroutines as long as each call works on its own graph.
type Rewriter struct {
	rules  []Rule
	logger *log.Logger
}

// Option configures a [Rewriter].
type Option func(*Rewriter)

// WithLogger sets the logger used for per-rule debug lines and diagnostics.
// The default discards all output.
func WithLogger(l *log.Logger) Option {
	return func(r *Rewriter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRules replaces the default catalog.
func WithRules(rules ...Rule) Option {
	return func(r *Rewriter) {
		r.rules = slices.Clone(rules)
	}
}

// New creates a Rewriter using [DefaultRules] unless overridden.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{
		rules:  DefaultRules(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns a copy of the rule list in application order.
func (r *Rewriter) Rules() []Rule { return slices.Clone(r.rules) }

// Stats summarizes one invocation.
type Stats struct {
	// Applied counts firings per rule name.
	Applied map[string]int
	// Visited counts the nodes completed per pass.
	Visited  map[string]int
	Duration time.Duration
}

func newStats() *Stats {
	return &Stats{Applied: make(map[string]int), Visited: make(map[string]int)}
}

// Total returns the number of rule firings.
func (s *Stats) Total() int {
	n := 0
	for _, c := range s.Applied {
		n += c
	}
	return n
}

// Merge adds the counts of o to s.
func (s *Stats) Merge(o *Stats) {
	if o == nil {
		return
	}
	if s.Applied == nil {
		s.Applied = make(map[string]int)
	}
	if s.Visited == nil {
		s.Visited = make(map[string]int)
	}
	for k, v := range o.Applied {
		s.Applied[k] += v
	}
	for k, v := range o.Visited {
		s.Visited[k] += v
	}
	s.Duration += o.Duration
}

// Rules returns the names of the rules that fired, sorted.
func (s *Stats) Rules() []string {
	return slices.Sorted(maps.Keys(s.Applied))
}

// Run rewrites the DAG reachable from roots in place and reports what was
// applied. Nil roots are skipped. Roots themselves are never replaced: a root
// that is also an input of another root stays live and keeps its operator
// even when its consumers are re-linked elsewhere.
//
// On a rule failure Run stops and returns the partial statistics together
// with the error.
func (r *Rewriter) Run(ctx context.Context, roots []*hop.Node) (*Stats, error) {
	stats := newStats()
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	live := slices.DeleteFunc(slices.Clone(roots), func(n *hop.Node) bool { return n == nil })
	if len(live) == 0 {
		return stats, nil
	}

	unpin := hop.Pin(live...)
	defer unpin()

	ctx = withLogger(ctx, r.logger)
	hooks := observability.Rewrite()

	for _, name := range []string{PassTopDown, PassBottomUp} {
		p := &pass{
			name:         name,
			descendFirst: name == PassBottomUp,
			rules:        r.rules,
			logger:       r.logger,
			hooks:        hooks,
			done:         make(map[hop.ID]bool),
			stats:        stats,
		}
		hooks.OnPassStart(ctx, name, len(live))
		passStart := time.Now()
		err := p.run(ctx, live)
		stats.Visited[name] = len(p.done)
		hooks.OnPassComplete(ctx, name, len(p.done), time.Since(passStart), err)
		if err != nil {
			r.logger.Error("rewrite aborted", "pass", name, "err", err)
			return stats, err
		}
	}
	return stats, nil
}

// RewriteRoots rewrites the DAG reachable from roots in place and returns the
// same roots.
func (r *Rewriter) RewriteRoots(ctx context.Context, roots []*hop.Node) ([]*hop.Node, error) {
	_, err := r.Run(ctx, roots)
	return roots, err
}

// Rewrite is the single-root form of [Rewriter.RewriteRoots].
func (r *Rewriter) Rewrite(ctx context.Context, root *hop.Node) (*hop.Node, error) {
	if root == nil {
		return nil, nil
	}
	_, err := r.Run(ctx, []*hop.Node{root})
	return root, err
}

var defaultRewriter = New()

// RewriteRoots rewrites with the default catalog and no logging.
func RewriteRoots(ctx context.Context, roots []*hop.Node) ([]*hop.Node, error) {
	return defaultRewriter.RewriteRoots(ctx, roots)
}

// Rewrite rewrites a single root with the default catalog and no logging.
func Rewrite(ctx context.Context, root *hop.Node) (*hop.Node, error) {
	return defaultRewriter.Rewrite(ctx, root)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the rewriter's logger, or a discarding logger
// for rules invoked outside a Rewriter.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}
