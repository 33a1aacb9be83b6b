package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dmlopt/pkg/errors"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
	"github.com/matzehuels/dmlopt/pkg/pipeline"
	"github.com/matzehuels/dmlopt/pkg/render/nodelink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file; empty derives <stem>.<format> from the input
	format   string // svg, png or dot
	optimize bool   // rewrite before drawing
	detailed bool   // show size facts in node labels
	noCache  bool
}

// renderCommand creates the render command for drawing operator DAGs.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: "svg"}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw a program's operator DAG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateFormat(opts.format, nodelink.Formats...); err != nil {
				return err
			}
			opts.format = strings.ToLower(opts.format)
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, png, dot")
	cmd.Flags().BoolVar(&opts.optimize, "optimize", false, "apply the rewrite rules before drawing")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show dimensions and nnz in node labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, path string, opts renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	program, err := c.loadForRender(ctx, path, opts)
	if err != nil {
		return err
	}

	out, err := nodelink.Render(ctx, program.Roots, opts.format, nodelink.Options{Detailed: opts.detailed})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render %s", opts.format)
	}

	dst := opts.output
	if dst == "" {
		base := filepath.Base(path)
		dst = filepath.Join(filepath.Dir(path), strings.TrimSuffix(base, filepath.Ext(base))+"."+opts.format)
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", dst)
	}
	prog.done("Rendered " + filepath.Base(path))

	printSuccess("Rendered %s", filepath.Base(path))
	printFile(dst)
	return nil
}

// loadForRender imports the program, optimizing it through the pipeline
// when requested.
func (c *CLI) loadForRender(ctx context.Context, path string, opts renderOpts) (*dmlio.Program, error) {
	if !opts.optimize {
		return dmlio.Import(path)
	}

	inputs, err := readInputs([]string{path})
	if err != nil {
		return nil, err
	}
	popts := pipeline.Options{Inputs: inputs}
	if err := c.setCLIDefaults(&popts); err != nil {
		return nil, err
	}
	// The drawing is made from the decoded program, so keep the input format.
	popts.Format = ""

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	results, err := runner.Execute(ctx, popts)
	if err != nil {
		return nil, err
	}
	printDetail("%d rewrites applied", results[0].Stats.Total())
	return results[0].Optimized, nil
}
