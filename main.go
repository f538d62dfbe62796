package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tome/internal/app"
	"tome/internal/config"
	"tome/internal/logger"
)

func main() {
	// Structured logger that picks correlation IDs out of the context.
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	application, err := app.New(cfg, deps.Store, deps.Embedder, deps.LLM)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
