package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sensorquest/internal/app"
	"sensorquest/internal/config"
)

func main() {
	headless := flag.Bool("headless", false, "serve the HTTP API without the mission terminal")
	scenario := flag.String("scenario", "", "simulated device profile (calm, lively, denied); overrides config")
	flag.Parse()

	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("config_load_failed", slog.Any("err", err))
		os.Exit(1)
	}
	if *scenario != "" {
		cfg.Scenario = *scenario
	}

	application, err := app.New(cfg, *headless)
	if err != nil {
		bootstrap.Error("app_init_failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			bootstrap.Error("app_close_failed", slog.Any("err", cerr))
		}
	}()

	logger := application.Logger()
	logger.Info("game_boot",
		slog.String("listen_address", cfg.ListenAddress),
		slog.String("log_path", cfg.LogFilePath),
		slog.String("scenario", cfg.Scenario),
		slog.Bool("headless", *headless),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("game_terminated", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("game_stopped")
}
