// Package pipeline runs the optimization of program files end to end.
//
// This package implements the load → hash → cache → rewrite → export
// pipeline shared by the CLI and the HTTP service, so that both entry points
// produce identical output and share cache entries.
//
// # Architecture
//
// Every input program is an independent unit with its own operator graph:
//
//  1. Load: decode the program with [dmlio.Read]
//  2. Hash: hash the canonical JSON encoding, so formatting differences in
//     the input do not defeat the cache
//  3. Cache: look up the optimized form under [cache.Keyer.RewriteKey]
//  4. Rewrite: apply the enabled rules with a [rewrite.Rewriter] and check
//     the result with [hop.Validate]
//  5. Export: encode the optimized program and store it in the cache
//
// Units run concurrently up to [Options.Parallelism]. The first failing unit
// cancels the rest.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	results, err := runner.Execute(ctx, pipeline.Options{
//	    Inputs: []pipeline.Input{{Unit: "prog.toml", Data: data, Format: dmlio.FormatTOML}},
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(results[0].Program)
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultParallelism is the number of units optimized at once.
	DefaultParallelism = 4

	// MaxParallelism caps Options.Parallelism.
	MaxParallelism = 64

	// DefaultTTL is how long optimized programs stay cached.
	DefaultTTL = 7 * 24 * time.Hour
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Input is one program to optimize.
type Input struct {
	// Unit labels the program in logs, errors and results.
	Unit   string       `json:"unit"`
	Data   []byte       `json:"-"`
	Format dmlio.Format `json:"format"`
}

// Options contains all configuration for a pipeline run.
type Options struct {
	Inputs []Input `json:"inputs"`

	// Format is the output encoding. Empty keeps each input's format.
	Format string `json:"format,omitempty"`

	// Disabled names rules removed from the default catalog.
	Disabled []string `json:"disabled,omitempty"`

	Parallelism int           `json:"parallelism,omitempty"`
	TTL         time.Duration `json:"ttl,omitempty"`

	// Refresh skips cache lookups; results are still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result is the outcome for one unit.
type Result struct {
	Unit  string
	RunID string

	// Program is the encoded optimized program.
	Program []byte
	Format  dmlio.Format

	// Optimized is the decoded optimized program.
	Optimized *dmlio.Program

	// Stats reports the rules applied. On a cache hit only Applied is set.
	Stats    *rewrite.Stats
	CacheHit bool

	// Before and After count the nodes reachable from the roots.
	Before int
	After  int

	Duration time.Duration
}

// Removed returns how many nodes the rewrite eliminated.
func (r *Result) Removed() int { return r.Before - r.After }

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Inputs) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no programs to optimize")
	}
	o.Inputs = slices.Clone(o.Inputs)
	for i := range o.Inputs {
		in := &o.Inputs[i]
		if in.Unit == "" {
			in.Unit = fmt.Sprintf("unit-%d", i+1)
		}
		if err := errors.ValidateUnitName(in.Unit); err != nil {
			return err
		}
		f, err := dmlio.ParseFormat(string(in.Format))
		if err != nil {
			return fmt.Errorf("%s: %w", in.Unit, err)
		}
		in.Format = f
	}
	units := lo.Map(o.Inputs, func(in Input, _ int) string { return in.Unit })
	if dups := lo.FindDuplicates(units); len(dups) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "duplicate unit %q", dups[0])
	}

	if o.Format != "" {
		f, err := dmlio.ParseFormat(o.Format)
		if err != nil {
			return err
		}
		o.Format = string(f)
	}
	if _, err := o.Rules(); err != nil {
		return err
	}

	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	o.Parallelism = min(o.Parallelism, MaxParallelism)
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// Rules returns the default catalog without the disabled rules.
func (o *Options) Rules() ([]rewrite.Rule, error) {
	return rewrite.Without(rewrite.DefaultRules(), o.Disabled...)
}

// OutputFormat returns the encoding used for in's result.
func (o *Options) OutputFormat(in Input) dmlio.Format {
	if o.Format != "" {
		return dmlio.Format(o.Format)
	}
	return in.Format
}

func reachable(prog *dmlio.Program) int {
	return len(hop.Reachable(prog.Roots...))
}
