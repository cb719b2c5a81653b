package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/clinic-portal/internal/app/bootstrap"
	"github.com/wolfman30/clinic-portal/internal/cli"
	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg := appconfig.Load()
	// stdout is reserved for command output
	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := bootstrap.BuildMetrics(cfg, registry)
	if m == nil {
		registry = nil
	}

	client, err := bootstrap.BuildAPIClient(cfg, logger, m)
	if err != nil {
		logger.Error("failed to build API client", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := cli.New(cli.Options{
		Config:   cfg,
		Logger:   logger,
		API:      client,
		Tokens:   bootstrap.BuildTokenStore(redisClient, cfg),
		Registry: registry,
		Metrics:  m,
		Messages: bootstrap.BuildMessages(cfg),
	})

	if err := cli.NewRootCommand(app).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
