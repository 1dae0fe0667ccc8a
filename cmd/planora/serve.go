package main

import (
	"github.com/spf13/cobra"

	"github.com/planora/planora/config"
	"github.com/planora/planora/internal/runner"
	"github.com/planora/planora/internal/runtime"
	"github.com/planora/planora/internal/server"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			if addr != "" {
				cfg.Server.Address = addr
			}
			ctx := cmd.Context()

			tele, _, _, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{
				ServiceName:    "planora-api",
				ServiceVersion: "dev",
			})
			if err != nil {
				return err
			}
			defer func() { _ = tele.Shutdown(ctx) }()

			metrics := runner.NewMetrics(tele.Registry)
			r, err := buildRunner(ctx, cfg, nil, metrics)
			if err != nil {
				return err
			}
			return server.New(cfg, r).Run(tele.Registry)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
