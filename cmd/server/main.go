package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hautex/visual-fashion-finder/internal/app"
	"github.com/hautex/visual-fashion-finder/internal/config"
	pkgconfig "github.com/hautex/visual-fashion-finder/pkg/config"
	"github.com/hautex/visual-fashion-finder/pkg/logger"
	"github.com/hautex/visual-fashion-finder/pkg/tracing"
)

func main() {
	// A missing .env file is fine; the environment wins over its values.
	loaded, err := pkgconfig.LoadDotenv()
	if err != nil {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger.
	log := logger.New(app.ServiceName, cfg.LogLevel)
	log.Info("starting fashion finder",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("search_engine", cfg.SearchEngine),
		slog.Any("env_files", loaded),
	)

	// Create a context that is cancelled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracingCfg := tracing.DefaultConfig(app.ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create the application with all dependencies wired.
	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		_ = shutdownTracer(context.Background())
		os.Exit(1)
	}

	// Run the application. This blocks until shutdown.
	runErr := application.Run(ctx)

	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer flushCancel()
	if err := shutdownTracer(flushCtx); err != nil {
		log.Warn("tracer shutdown error", slog.String("error", err.Error()))
	}

	if runErr != nil {
		log.Error("application error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	log.Info("fashion finder stopped")
}
