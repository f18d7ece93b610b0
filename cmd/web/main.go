package main

import (
	"fmt"
	"os"

	"github.com/loxe-ai/evidence-tracer/pkg/runtime/app"
	"github.com/loxe-ai/evidence-tracer/pkg/server"
	"github.com/loxe-ai/evidence-tracer/pkg/services/config"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	envPath string
	migrate bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the evidence scan API",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a config file (yaml, toml or json)")
	rootCmd.Flags().StringVar(&envPath, "env-file", ".env", "Dotenv file loaded before the config")
	rootCmd.Flags().BoolVar(&migrate, "migrate", false, "Create missing tables before serving")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(envPath); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.LogLevel, zerolog.New(os.Stdout).With().Timestamp().Logger())
	ctx := logger.WithContext(cmd.Context())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	if migrate {
		if err := postgres.Migrate(ctx, a.DB); err != nil {
			return err
		}
		logger.Info().Msg("schema is up to date")
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr:            cfg.Server.Addr(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Scans:     a.Controller,
			Inventory: a.Gateway,
			Health:    a.Gateway,
			Metrics:   prometheus.DefaultGatherer,
			Drain:     a.Controller.Wait,
		},
	})
	return api.Start()
}
