package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/wnft/internal/config"
	"github.com/matzehuels/wnft/internal/server"
	"github.com/matzehuels/wnft/pkg/observability"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cards over HTTP",
		Long: `Serve cards over HTTP.

  GET  /v1/card.png?title=&accent=&theme=&address=&name=&featured=&avatar=&size=
  POST /v1/cards
  GET  /v1/stats
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			comps, err := cfg.Build(ctx, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			stats := observability.NewStats()
			observability.SetGatekeeperHooks(stats)
			observability.SetPipelineHooks(stats)
			observability.SetCacheHooks(stats)

			logger.Info("starting server", "cache", cfg.Cache.Backend, "rasterizer", cfg.Render.Rasterizer)
			srv := server.New(server.Options{
				Generator:      comps.Runner,
				Stats:          stats,
				Logger:         logger,
				RequestTimeout: cfg.Server.WriteTimeout,
			})
			return srv.ListenAndServe(ctx, listenOptions(cfg.Server))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	return cmd
}

func listenOptions(s config.ServerConfig) server.ListenOptions {
	return server.ListenOptions{
		Addr:            s.Addr,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
	}
}
