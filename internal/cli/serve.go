package cli

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/internal/server"
	"github.com/ko3luhbka/dephell/pkg/observability/prom"
)

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversion and resolution over HTTP",
		Long: `Serve runs the HTTP API: POST /v1/convert, /v1/lock and /v1/graph, plus
/healthz and Prometheus metrics on /metrics.

Dependencies given as local paths or VCS links are refused; only index
packages are resolved. Use a redis:// or mongodb:// cache to share index
responses between replicas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.settings()
			if err != nil {
				return err
			}

			src := c.Source
			if src == nil {
				backend, err := cfg.OpenCache(ctx)
				if err != nil {
					return err
				}
				defer backend.Close()
				if src, err = cfg.NewSource(backend, nil, "", c.flags.refresh); err != nil {
					return err
				}
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			prom.New(reg).Install()

			srv := server.New(server.Config{
				Registry: c.Registry,
				Source:   src,
				Options:  cfg.ResolverOptions(c.Logger.Debugf),
				Logger:   c.Logger,
				Metrics:  prom.Handler(reg),
				Timeout:  timeout,
			})

			errc := make(chan error, 1)
			go func() { errc <- srv.Start(addr) }()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			c.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return ctx.Err()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", server.DefaultTimeout, "resolution time limit per request")
	return cmd
}
