package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/widelong/internal/config"
	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/history"
	"github.com/JonMunkholm/widelong/internal/logging"
	"github.com/JonMunkholm/widelong/internal/sheet"
	"github.com/JonMunkholm/widelong/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"history_enabled", cfg.Database.Enabled(),
		"convert_max_concurrent", cfg.Convert.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	core.ConvertTimeout = cfg.Convert.Timeout

	reader := sheet.NewReader(cfg.Convert.MaxFileSize)
	cached, err := sheet.NewCachedReader(reader, cfg.Convert.CacheSize)
	if err != nil {
		slog.Error("failed to create table cache", "error", err)
		os.Exit(1)
	}

	var (
		serviceOpts []core.Option
		serverOpts  []web.Option
	)
	ctx := context.Background()
	pool, store, err := history.Open(ctx, cfg.Database)
	switch {
	case errors.Is(err, history.ErrDisabled):
		slog.Info("run history disabled")
	case err != nil:
		slog.Error("failed to open history database", "error", err)
		os.Exit(1)
	default:
		defer pool.Close()
		serviceOpts = append(serviceOpts, core.WithRecorder(store))
		serverOpts = append(serverOpts, web.WithHistory(store))
	}

	service := core.NewService(cached, sheet.NewWriter(), serviceOpts...)
	server := web.NewServer(service, reader, cfg, serverOpts...)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		} else {
			slog.Info("all conversions completed")
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
}
