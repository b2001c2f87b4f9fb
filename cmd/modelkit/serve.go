package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/modelkit/bootstrap"
	"github.com/kbukum/modelkit/gateway"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/models"
	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured models over HTTP",
		Long: `Serve every model in the config file over HTTP until SIGINT or SIGTERM.

  POST /v1/generate   generate a completion (SSE with "stream": true)
  GET  /v1/models     list configured models
  GET  /health        check every backend`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			log := logger.GetGlobalLogger()
			app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(log))
			if err != nil {
				return err
			}
			name := cfg.Base.Name

			var metrics *observability.Metrics
			if cfg.Observability.Enabled {
				if metrics, err = observability.NewMetrics(observability.Meter(name)); err != nil {
					return err
				}
			}

			cat := models.NewCatalog(models.Deps{
				Logger:      logger.Get("models"),
				Metrics:     metrics,
				Tracing:     cfg.Observability.Enabled,
				ServiceName: name,
			})
			srv := server.New(cfg.Server, log)
			if err := srv.ApplyMiddleware(metrics); err != nil {
				return err
			}
			gateway.New(cat, logger.Get("gateway")).Register(srv, name)

			if err := app.RegisterComponent(observability.NewComponent(cfg.Observability, name, cfg.Base.Version, cfg.Base.Environment)); err != nil {
				return err
			}
			if err := app.RegisterComponent(cat.Component(cfg)); err != nil {
				return err
			}
			if err := app.RegisterComponent(srv); err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
