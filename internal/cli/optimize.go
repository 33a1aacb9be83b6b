package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
	"github.com/matzehuels/dmlopt/pkg/pipeline"
)

// optimizeOpts holds the command-line flags for the optimize command.
type optimizeOpts struct {
	output      string   // output directory; empty writes next to each input
	format      string   // output encoding; empty keeps the input's
	disabled    []string // rules to skip
	parallelism int
	noCache     bool
	refresh     bool
}

// optimizeCommand creates the optimize command.
func (c *CLI) optimizeCommand() *cobra.Command {
	var opts optimizeOpts

	cmd := &cobra.Command{
		Use:   "optimize [files...]",
		Short: "Apply algebraic simplifications to program files",
		Long: `Optimize reads each program file (JSON, TOML or YAML, chosen by extension),
applies the rewrite rules and writes <name>.opt.<ext> next to the input or
into --output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOptimize(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default: next to each input)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: json, toml, yaml (default: input format)")
	cmd.Flags().StringSliceVar(&opts.disabled, "disable", nil, "rules to skip (comma-separated)")
	cmd.Flags().IntVarP(&opts.parallelism, "parallelism", "p", 0, fmt.Sprintf("programs optimized at once (default %d)", pipeline.DefaultParallelism))
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	return cmd
}

// runOptimize loads the files, runs the pipeline and writes the results.
func (c *CLI) runOptimize(ctx context.Context, paths []string, opts optimizeOpts) error {
	logger := loggerFromContext(ctx)

	inputs, err := readInputs(paths)
	if err != nil {
		return err
	}

	popts := pipeline.Options{
		Inputs:      inputs,
		Format:      opts.format,
		Disabled:    opts.disabled,
		Parallelism: opts.parallelism,
		Refresh:     opts.refresh,
	}
	if err := c.setCLIDefaults(&popts); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	results, err := runner.Execute(ctx, popts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Optimized %d programs", len(results)))

	if opts.output != "" {
		if err := os.MkdirAll(opts.output, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "create output directory")
		}
	}

	total := rewrite.Stats{Applied: make(map[string]int)}
	for i, res := range results {
		out := outputPath(paths[i], opts.output, res.Format)
		if err := os.WriteFile(out, res.Program, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", out)
		}
		total.Merge(res.Stats)

		printSuccess("Optimized %s", res.Unit)
		printStats(res.Before, res.After, res.Stats.Total(), res.CacheHit)
		printFile(out)
	}

	if counts := ruleCounts(&total); len(counts) > 0 {
		printNewline()
		fmt.Println(renderRuleTable(counts))
	} else {
		printInfo("No rewrites applied")
	}
	if len(results) == 1 {
		printNewline()
		printNextStep("Draw the result", fmt.Sprintf("%s render %s", appName, outputPath(paths[0], opts.output, results[0].Format)))
	}
	return nil
}

// readInputs reads each file into a pipeline input named after its base
// name.
func readInputs(paths []string) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, 0, len(paths))
	for _, p := range paths {
		format, err := dmlio.FormatFromPath(p)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", p)
			}
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", p)
		}
		inputs = append(inputs, pipeline.Input{Unit: filepath.Base(p), Data: data, Format: format})
	}
	return inputs, nil
}

// outputPath derives <dir>/<stem>.opt.<format> from the input path.
func outputPath(input, dir string, format dmlio.Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+".opt."+string(format))
}

// ruleCounts lists the rules that fired, most frequent first.
func ruleCounts(s *rewrite.Stats) []ruleCount {
	var counts []ruleCount
	for rule, n := range s.Applied {
		if n > 0 {
			counts = append(counts, ruleCount{Rule: rule, Count: n})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Rule < counts[j].Rule
	})
	return counts
}
