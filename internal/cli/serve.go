package cli

import (
	"context"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmlopt/internal/server"
	"github.com/matzehuels/dmlopt/pkg/cache"
	"github.com/matzehuels/dmlopt/pkg/observability/prom"
	"github.com/matzehuels/dmlopt/pkg/pipeline"
)

const defaultAddr = ":8080"

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string
	redisURL string
	noCache  bool
}

// serveCommand creates the serve command that runs the HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the optimization HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default "+defaultAddr+")")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "redis URL for the shared result cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg := c.cfg()
	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = defaultAddr
	}
	if opts.redisURL != "" {
		cfg.Cache.RedisURL = opts.redisURL
	}

	prom.New(prometheus.DefaultRegisterer).Install()

	store, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(store, cache.NewScopedKeyer(nil, "api:"), c.Logger)
	defer runner.Close()

	srv := server.New(server.Config{
		Addr:        addr,
		Runner:      runner,
		Disabled:    cfg.Rules.Disabled,
		Parallelism: cfg.Parallelism,
		Logger:      c.Logger,
	})

	printInfo("Listening on %s", StyleNumber.Render(addr))
	printKeyValue("cache", backendName(cfg, opts.noCache))
	printNextStep("Try it", "curl -s localhost"+portOf(addr)+"/v1/rules")
	return srv.ListenAndServe(ctx)
}

func backendName(cfg *Config, noCache bool) string {
	switch {
	case noCache:
		return "none"
	case cfg.Cache.RedisURL != "":
		return "redis"
	}
	return "file"
}

// portOf returns the ":port" suffix of a listen address.
func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return ":" + port
}
