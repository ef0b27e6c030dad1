package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"employcli/internal/dataprocessing"
	apperrors "employcli/internal/errors"
	"employcli/internal/infrastructure"
	"employcli/internal/store"
	"employcli/pkg/contracts/domain"
)

// PipelineOptions names the collections and the seed file used by a run
type PipelineOptions struct {
	RawCollection   string
	CleanCollection string
	SourceFile      string
	Sheet           string
}

// CleanStats summarizes what the cleaning step did with the raw rows
type CleanStats struct {
	RawRows     int            `json:"raw_rows"`
	CleanRows   int            `json:"clean_rows"`
	StoredRows  int            `json:"stored_rows"`
	ParseErrors int            `json:"parse_errors"`
	Dropped     map[string]int `json:"dropped"`
	Seeded      bool           `json:"seeded"`
}

// Result is the output of one pipeline run
type Result struct {
	RunID       string                    `json:"run_id"`
	StartedAt   time.Time                 `json:"started_at"`
	Duration    time.Duration             `json:"duration"`
	Window      domain.YearWindow         `json:"window"`
	Growth      []domain.GrowthRow        `json:"growth"`
	Composition []domain.CompositionRow   `json:"composition"`
	Trend       []domain.SectorTrendPoint `json:"trend"`
	Clean       CleanStats                `json:"clean"`
}

// PipelineService runs seed, clean, persist and analysis against an injected
// record store. It holds no state between runs.
type PipelineService struct {
	store     store.RecordStore
	opts      PipelineOptions
	telemetry *infrastructure.Telemetry
	logger    *slog.Logger
}

// NewPipelineService creates a pipeline service. A nil telemetry records nothing.
func NewPipelineService(st store.RecordStore, opts PipelineOptions, tel *infrastructure.Telemetry, logger *slog.Logger) *PipelineService {
	if tel == nil {
		tel = infrastructure.NoopTelemetry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{
		store:     st,
		opts:      opts,
		telemetry: tel,
		logger:    logger.With(slog.String("service", "pipeline")),
	}
}

// Run executes the pipeline end to end. Any returned error is fatal for the
// run; row-level parse failures are only counted in Result.Clean.
func (s *PipelineService) Run(ctx context.Context) (result *Result, err error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = infrastructure.WithRunID(ctx, runID)

	ctx, span := s.telemetry.Tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer func() {
		if err != nil {
			infrastructure.RecordError(ctx, err)
			s.logger.ErrorContext(ctx, "Pipeline run failed",
				slog.String("error", err.Error()),
				slog.String("error_type", string(apperrors.TypeOf(err))))
		}
		s.telemetry.Metrics.RecordRun(ctx, time.Since(started), err)
		span.End()
	}()

	s.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("raw_collection", s.opts.RawCollection),
		slog.String("clean_collection", s.opts.CleanCollection))

	if err := s.store.Ping(ctx); err != nil {
		return nil, apperrors.NewStoreUnavailableError("ping", err)
	}

	result = &Result{RunID: runID, StartedAt: started}

	var raw []domain.RawRecord
	err = s.stage(ctx, "pipeline.seed", func(ctx context.Context) error {
		var seeded bool
		raw, seeded, err = s.seed(ctx)
		result.Clean.Seeded = seeded
		return err
	})
	if err != nil {
		return nil, err
	}

	var cleaned dataprocessing.CleanResult
	_ = s.stage(ctx, "pipeline.clean", func(ctx context.Context) error {
		cleaned = s.clean(ctx, raw)
		return nil
	})
	result.Clean.RawRows = len(raw)
	result.Clean.CleanRows = len(cleaned.Records)
	result.Clean.ParseErrors = len(cleaned.Errors)
	result.Clean.Dropped = dropCounts(cleaned)

	var records []domain.CleanRecord
	err = s.stage(ctx, "pipeline.persist", func(ctx context.Context) error {
		var stored int
		records, stored, err = s.persist(ctx, cleaned.Records)
		result.Clean.StoredRows = stored
		return err
	})
	if err != nil {
		return nil, err
	}

	var growth *dataprocessing.GrowthReport
	err = s.stage(ctx, "pipeline.growth", func(ctx context.Context) error {
		growth, err = dataprocessing.AnalyzeGrowth(records)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("growth analysis: %w", err)
	}

	var composition []domain.CompositionRow
	err = s.stage(ctx, "pipeline.composition", func(ctx context.Context) error {
		composition, err = dataprocessing.AnalyzeComposition(records)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("composition analysis: %w", err)
	}

	result.Window = growth.Window
	result.Growth = growth.Rows
	result.Trend = growth.YearlyTotals
	result.Composition = composition
	result.Duration = time.Since(started)

	s.logger.InfoContext(ctx, "Pipeline run completed",
		slog.Int("min_year", result.Window.MinYear),
		slog.Int("max_year", result.Window.MaxYear),
		slog.Int("sectors", len(result.Growth)),
		slog.Int("years", len(result.Composition)),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// stage runs fn inside a child span named after the step
func (s *PipelineService) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.telemetry.Tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	return nil
}

// seed loads the raw collection from the source file when it is missing or
// empty, then reads it back.
func (s *PipelineService) seed(ctx context.Context) ([]domain.RawRecord, bool, error) {
	exists, err := s.store.ExistsAndNonEmpty(ctx, s.opts.RawCollection)
	if err != nil {
		return nil, false, apperrors.NewStoreUnavailableError("check raw collection", err)
	}

	seeded := false
	if !exists {
		rows, err := dataprocessing.ParseFile(s.opts.SourceFile, s.opts.Sheet)
		if err != nil {
			return nil, false, fmt.Errorf("load source file %s: %w", s.opts.SourceFile, err)
		}

		docs := make([]store.Document, len(rows))
		for i, r := range rows {
			docs[i] = rawToDocument(r)
		}
		n, err := s.store.BulkInsert(ctx, s.opts.RawCollection, docs)
		if err != nil {
			return nil, false, apperrors.NewStoreUnavailableError("seed raw collection", err)
		}
		if n == 0 {
			return nil, false, apperrors.NewStoreUnavailableError("seed raw collection",
				fmt.Errorf("stored 0 of %d rows from %s", len(rows), s.opts.SourceFile))
		}
		seeded = true
		s.logger.InfoContext(ctx, "Seeded raw collection",
			slog.String("source_file", s.opts.SourceFile),
			slog.Int("rows", n))
	}

	docs, err := s.store.ReadAll(ctx, s.opts.RawCollection)
	if err != nil {
		return nil, seeded, apperrors.NewStoreUnavailableError("read raw collection", err)
	}
	if len(docs) == 0 {
		return nil, seeded, apperrors.NewStoreUnavailableError("read raw collection",
			errors.New("collection is empty"))
	}

	raw := make([]domain.RawRecord, len(docs))
	for i, doc := range docs {
		raw[i] = documentToRaw(doc)
	}
	s.logger.InfoContext(ctx, "Loaded raw records", slog.Int("raw_rows", len(raw)))
	return raw, seeded, nil
}

func (s *PipelineService) clean(ctx context.Context, raw []domain.RawRecord) dataprocessing.CleanResult {
	cleaned := dataprocessing.Clean(raw)

	for reason, n := range cleaned.Dropped {
		s.logger.InfoContext(ctx, "Dropped rows",
			slog.String("reason", string(reason)),
			slog.Int("rows", n))
	}
	for _, perr := range cleaned.Errors {
		s.logger.DebugContext(ctx, "Row failed to parse", slog.String("error", perr.Error()))
	}
	if len(cleaned.Errors) > 0 {
		s.logger.WarnContext(ctx, "Malformed rows excluded", slog.Int("rows", len(cleaned.Errors)))
	}

	s.telemetry.Metrics.RecordClean(ctx, len(cleaned.Records), dropCounts(cleaned))
	s.logger.InfoContext(ctx, "Cleaning complete",
		slog.Int("raw_rows", len(raw)),
		slog.Int("clean_rows", len(cleaned.Records)),
		slog.Int("dropped_rows", cleaned.DroppedTotal()))
	return cleaned
}

// persist replaces the clean collection and returns what the store holds afterwards
func (s *PipelineService) persist(ctx context.Context, records []domain.CleanRecord) ([]domain.CleanRecord, int, error) {
	docs := make([]store.Document, len(records))
	for i, r := range records {
		docs[i] = cleanToDocument(r)
	}

	stored, err := s.store.ReplaceAll(ctx, s.opts.CleanCollection, docs)
	if err != nil {
		return nil, 0, apperrors.NewStoreUnavailableError("replace clean collection", err)
	}
	if stored == 0 && len(docs) > 0 {
		return nil, 0, apperrors.NewStoreUnavailableError("replace clean collection",
			fmt.Errorf("stored 0 of %d records", len(docs)))
	}

	readBack, err := s.store.ReadAll(ctx, s.opts.CleanCollection)
	if err != nil {
		return nil, stored, apperrors.NewStoreUnavailableError("read clean collection", err)
	}

	out := make([]domain.CleanRecord, 0, len(readBack))
	for i, doc := range readBack {
		rec, err := documentToClean(doc)
		if err != nil {
			return nil, stored, fmt.Errorf("decode clean document %d: %w", i, err)
		}
		out = append(out, rec)
	}

	s.logger.InfoContext(ctx, "Persisted clean records",
		slog.String("collection", s.opts.CleanCollection),
		slog.Int("stored_rows", stored))
	return out, stored, nil
}

func dropCounts(r dataprocessing.CleanResult) map[string]int {
	out := make(map[string]int, len(r.Dropped))
	for reason, n := range r.Dropped {
		out[string(reason)] = n
	}
	return out
}
