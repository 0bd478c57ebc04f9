package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"knowhub/internal/adapter/gemini"
	"knowhub/internal/app"
	"knowhub/internal/config"
	"knowhub/internal/logger"
)

func main() {
	slog.SetDefault(slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.Bootstrap(cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("migrations applied successfully")

	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	embedder := gemini.NewEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDim)
	generator := gemini.NewGenerator(client, cfg.ChatModel)

	a, err := app.New(cfg, db, embedder, generator)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
