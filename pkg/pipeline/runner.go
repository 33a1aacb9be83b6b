package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dmlopt/pkg/cache"
	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
	"github.com/matzehuels/dmlopt/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedResult is the cache entry for one optimized program.
type cachedResult struct {
	Program []byte         `json:"program"`
	Applied map[string]int `json:"applied"`
	Before  int            `json:"before"`
	After   int            `json:"after"`
}

// Execute optimizes every input and returns the results in input order.
// All results of one call share a RunID.
func (r *Runner) Execute(ctx context.Context, opts Options) ([]*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	rules, err := opts.Rules()
	if err != nil {
		return nil, err
	}
	rw := rewrite.New(rewrite.WithRules(rules...), rewrite.WithLogger(opts.Logger))
	runID := uuid.NewString()

	results := make([]*Result, len(opts.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, in := range opts.Inputs {
		g.Go(func() error {
			res, err := r.optimize(gctx, rw, in, &opts)
			if err != nil {
				return fmt.Errorf("%s: %w", in.Unit, err)
			}
			res.RunID = runID
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts.Logger.Info("optimized programs",
		"run", runID,
		"units", len(results),
		"applied", lo.SumBy(results, func(res *Result) int { return res.Stats.Total() }),
		"cache_hits", lo.CountBy(results, func(res *Result) bool { return res.CacheHit }))
	return results, nil
}

func (r *Runner) optimize(ctx context.Context, rw *rewrite.Rewriter, in Input, opts *Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	hooks := observability.Pipeline()
	logger := opts.Logger.With("unit", in.Unit)
	format := opts.OutputFormat(in)

	// Stage 1: Load
	hooks.OnLoadStart(ctx, in.Unit)
	loadStart := time.Now()
	prog, err := dmlio.Read(bytes.NewReader(in.Data), in.Format)
	nodes := 0
	if prog != nil {
		nodes = prog.Graph.Live()
	}
	hooks.OnLoadComplete(ctx, in.Unit, nodes, time.Since(loadStart), err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	// Stage 2: Hash
	canonical, err := dmlio.Marshal(prog, dmlio.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	key := r.Keyer.RewriteKey(cache.Hash(canonical), cache.RewriteKeyOpts{
		Rules:  rewrite.RuleNames(rw.Rules()),
		Format: string(format),
	})

	// Stage 3: Cache
	if !opts.Refresh {
		if res, ok := r.lookup(ctx, key, format); ok {
			res.Unit = in.Unit
			res.Duration = time.Since(start)
			logger.Debug("cache hit", "key", key)
			return res, nil
		}
	}

	// Stage 4: Rewrite
	res := &Result{Unit: in.Unit, Format: format, Before: reachable(prog)}
	hooks.OnRewriteStart(ctx, in.Unit, res.Before)
	rewriteStart := time.Now()
	stats, err := rw.Run(ctx, prog.Roots)
	if err == nil {
		if verr := hop.Validate(prog.Roots...); verr != nil {
			err = errors.Wrap(errors.ErrCodeInternal, verr, "rewritten program is inconsistent")
		}
	}
	hooks.OnRewriteComplete(ctx, in.Unit, stats.Total(), time.Since(rewriteStart), err)
	if err != nil {
		return nil, fmt.Errorf("rewrite: %w", err)
	}
	res.Stats = stats
	res.After = reachable(prog)
	res.Optimized = prog

	// Stage 5: Export
	hooks.OnExportStart(ctx, in.Unit, string(format))
	exportStart := time.Now()
	data, err := dmlio.Marshal(prog, format)
	hooks.OnExportComplete(ctx, in.Unit, string(format), len(data), time.Since(exportStart), err)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	res.Program = data

	entry, err := json.Marshal(cachedResult{Program: data, Applied: stats.Applied, Before: res.Before, After: res.After})
	if err == nil {
		err = r.Cache.Set(ctx, key, entry, opts.TTL)
	}
	if err != nil {
		logger.Warn("cache store failed", "err", err)
	}

	res.Duration = time.Since(start)
	logger.Info("optimized program",
		"applied", stats.Total(),
		"nodes_before", res.Before,
		"nodes_after", res.After,
		"duration", res.Duration)
	return res, nil
}

// lookup returns a cached result. Undecodable entries are treated as misses.
func (r *Runner) lookup(ctx context.Context, key string, format dmlio.Format) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var entry cachedResult
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	prog, err := dmlio.Read(bytes.NewReader(entry.Program), format)
	if err != nil {
		return nil, false
	}
	return &Result{
		Program:   entry.Program,
		Format:    format,
		Optimized: prog,
		Stats:     &rewrite.Stats{Applied: entry.Applied, Visited: map[string]int{}},
		CacheHit:  true,
		Before:    entry.Before,
		After:     entry.After,
	}, true
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
