package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"employcli/internal/config"
	"employcli/internal/exporter"
	"employcli/internal/infrastructure"
	"employcli/internal/services"
	"employcli/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("Analysis failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// run executes one batch analysis: seed, clean, persist, analyze, export and
// print the insights to stdout. Any returned error is fatal.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file (defaults to the first config found)")
	sourceFile := fs.String("source", "", "tabular file used to seed the raw collection (overrides ingest.source_file)")
	outDir := fs.String("out", "", "output directory for CSV and workbook exports (overrides report.output_dir)")
	topN := fs.Int("top", 0, "number of growing and declining sectors to print (overrides report.top_n)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *sourceFile != "" {
		cfg.Ingest.SourceFile = *sourceFile
	}
	if *outDir != "" {
		cfg.Report.OutputDir = *outDir
	}
	if *topN > 0 {
		cfg.Report.TopN = *topN
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	tel, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.WarnContext(ctx, "Telemetry disabled", slog.String("error", err.Error()))
		tel = infrastructure.NoopTelemetry()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.InfoContext(ctx, "Starting employment analysis",
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("source_file", cfg.Ingest.SourceFile),
		slog.String("output_dir", cfg.Report.OutputDir),
		slog.Int("top_n", cfg.Report.TopN))

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

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	// Insights are checked before anything is written so a zero baseline
	// leaves no partial output behind.
	insights, err := exporter.BuildInsights(result, cfg.Report.TopN)
	if err != nil {
		return fmt.Errorf("build insights: %w", err)
	}

	if err := os.MkdirAll(cfg.Report.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if cfg.Report.CSV {
		paths, err := exporter.ExportCSVs(result, cfg.Report.OutputDir)
		if err != nil {
			return fmt.Errorf("export CSV files: %w", err)
		}
		logger.InfoContext(ctx, "CSV files written", slog.Any("files", paths))
	}
	if cfg.Report.Workbook {
		path := filepath.Join(cfg.Report.OutputDir, exporter.WorkbookFile)
		if err := exporter.NewWorkbookExporter(logger).Export(result, path); err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
		logger.InfoContext(ctx, "Workbook written", slog.String("file", path))
	}

	if err := insights.WriteText(stdout); err != nil {
		return fmt.Errorf("print insights: %w", err)
	}

	logger.InfoContext(ctx, "Employment analysis complete",
		slog.String("run_id", result.RunID),
		slog.Duration("duration", result.Duration))
	return nil
}
