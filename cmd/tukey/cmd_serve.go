package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/insights"
	"github.com/tukey-analytics/tukey/internal/metrics"
	"github.com/tukey-analytics/tukey/internal/server"
	"github.com/tukey-analytics/tukey/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local gateway for the browser front-end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("starting gateway",
				slog.String("version", version.Get().Version),
				slog.String("api_base_url", a.cfg.APIBaseURL),
				slog.String("storage_backend", a.cfg.StorageBackend),
			)

			a.session.OnInvalidated(func(ctx context.Context, ev client.UnauthorizedEvent) {
				a.logger.Warn("session expired, please log in", slog.String("operation", ev.Operation))
			})

			srv, err := server.New(a.cfg, a.logger, server.Deps{
				Session:  a.session,
				API:      a.api,
				Cache:    a.cache,
				History:  insights.NewHistory(),
				Gatherer: a.registry,
				Metrics:  metrics.NewGatewayMetrics(a.registry),
			})
			if err != nil {
				return err
			}

			if err := srv.Start(cmd.Context()); err != nil {
				a.logger.Error("gateway error", slog.String("error", err.Error()))
				return err
			}
			a.logger.Info("gateway shutdown complete")
			return nil
		},
	}
}
