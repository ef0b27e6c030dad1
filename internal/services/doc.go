// Package services implements the employment analysis pipeline on top of an
// injected record store.
//
// A run seeds the raw collection from the configured source file when the
// collection is missing or empty, cleans the raw rows, replaces the clean
// collection with the result and computes the sector growth ranking, the
// full-time/part-time composition and the yearly sector trend:
//
//	st, err := store.Open(ctx, cfg.Store)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	svc := services.NewPipelineService(st, services.PipelineOptions{
//	    RawCollection:   cfg.Store.RawCollection,
//	    CleanCollection: cfg.Store.CleanCollection,
//	    SourceFile:      cfg.Ingest.SourceFile,
//	}, telemetry, logger)
//	result, err := svc.Run(ctx)
//
// Every error returned by Run aborts the run. Row-level parse failures never
// surface as errors; they are counted in Result.Clean.
package services
