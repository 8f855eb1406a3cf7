package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"

	"github.com/vadimbarashkov/shortener/internal/app"
	"github.com/vadimbarashkov/shortener/internal/config"
)

const defaultConfigPath = "./config/config.yml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A missing .env file is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env file", slog.Any("err", err))
		os.Exit(1)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := httplog.NewLogger("shortener", httplog.Options{
		JSON:     cfg.Log.JSON,
		LogLevel: cfg.Log.SlogLevel(),
		Concise:  cfg.Log.Concise,
		Tags: map[string]string{
			"env":     cfg.Env,
			"version": app.Version,
		},
	})

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
