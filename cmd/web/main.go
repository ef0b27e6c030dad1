package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"employcli/internal/config"
	"employcli/internal/infrastructure"
	"employcli/internal/services"
	"employcli/internal/store"
	transport "employcli/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to the first config found)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close record store", slog.String("error", err.Error()))
		}
	}()

	pipeline := services.NewPipelineService(st, services.PipelineOptions{
		RawCollection:   cfg.Store.RawCollection,
		CleanCollection: cfg.Store.CleanCollection,
		SourceFile:      cfg.Ingest.SourceFile,
		Sheet:           cfg.Ingest.Sheet,
	}, tel, logger)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: transport.NewRouter(transport.RouterDeps{
			Config:    cfg.Server,
			Runner:    pipeline,
			Store:     st,
			TopN:      cfg.Report.TopN,
			Telemetry: tel,
			Logger:    logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting server",
			slog.Int("port", cfg.Server.Port),
			slog.String("store_driver", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received interrupt signal")
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	logger.Info("Server shutdown complete")
	return nil
}
