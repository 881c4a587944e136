package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"shpetl/internal/attrstore"
	"shpetl/internal/config"
	"shpetl/internal/datasource/shapefile"
	"shpetl/internal/enrich"
	"shpetl/internal/logger"
	"shpetl/internal/metrics"
	"shpetl/internal/progress"
	"shpetl/internal/reader"
	"shpetl/internal/storage"
)

// Test seams.
var (
	newRepositoryFn = storage.New
	openSourcesFn   = openSources
)

// summary holds the run totals.
type summary struct {
	job         string
	read        atomic.Int64
	deduped     atomic.Int64
	inserted    atomic.Int64
	batches     atomic.Int64
	stageErrors atomic.Int64
}

func (s *summary) log(elapsed time.Duration) {
	log.Info().
		Int64("read", s.read.Load()).
		Int64("deduped", s.deduped.Load()).
		Int64("inserted", s.inserted.Load()).
		Int64("batches", s.batches.Load()).
		Int64("stage_errors", s.stageErrors.Load()).
		Dur(logger.FieldDuration, elapsed).
		Msg("summary")

	metrics.RecordRows(s.job, metrics.KindRead, s.read.Load())
	metrics.RecordRows(s.job, metrics.KindDeduped, s.deduped.Load())
	metrics.RecordRows(s.job, metrics.KindInserted, s.inserted.Load())
}

// openSources returns the reader's OpenFunc for src. With materialize set
// the attribute table is first copied to a temporary SQLite file.
func openSources(ctx context.Context, src config.Source) reader.OpenFunc {
	return func() (reader.GeometrySource, reader.AttributeSource, error) {
		paths, err := shapefile.Resolve(src.Path)
		if err != nil {
			return nil, nil, err
		}
		geom, err := shapefile.OpenPaths(paths)
		if err != nil {
			return nil, nil, err
		}
		dbf, err := attrstore.OpenDBF(paths)
		if err != nil {
			_ = geom.Close()
			return nil, nil, err
		}
		if !src.Attributes.Materialize {
			return geom, dbf, nil
		}

		m, err := attrstore.Materialize(ctx, dbf, src.Attributes.TempDir)
		if cerr := dbf.Close(); cerr != nil && err == nil {
			_ = m.Close()
			err = cerr
		}
		if err != nil {
			_ = geom.Close()
			return nil, nil, err
		}
		return geom, m, nil
	}
}

// run streams the shapefile into the configured table. A producer goroutine
// pulls enriched rows from the reader and drops duplicates; the loader
// batches them into the repository. The first error cancels both. Batches
// committed before the error stay committed.
func run(ctx context.Context, cfg config.Pipeline) (*summary, error) {
	sum := &summary{job: cfg.Job}
	lg := logger.Component("run")

	notifier := &progress.Notifier{
		Interval: cfg.Runtime.NotifyAfter,
		OnRecordsRead: func(current, total int) {
			lg.Debug().Int(logger.FieldRecord, current).Int("total", total).Msg("records read")
		},
		OnPercentRead: func(fraction float64) {
			metrics.SetProgress(cfg.Job, fraction)
		},
	}
	deps := enrich.Deps{
		OnStageError: func(e *enrich.StageError) {
			sum.stageErrors.Add(1)
			metrics.RecordStageError(cfg.Job, e.Stage.String())
			lg.Warn().Err(e.Err).Str(logger.FieldStage, e.Stage.String()).Int(logger.FieldRecord, e.Record).Msg("stage failed; cells left empty")
		},
	}

	rd := reader.New(openSourcesFn(ctx, cfg.Source), reader.Options{
		Config:   cfg.EnrichConfig(),
		Deps:     deps,
		Notifier: notifier,
	})
	defer func() {
		if err := rd.Close(); err != nil {
			lg.Warn().Err(err).Msg("reader close")
		}
	}()

	start := time.Now()
	cols, err := rd.Schema()
	metrics.RecordStep(cfg.Job, "open", err, time.Since(start))
	if err != nil {
		return sum, err
	}
	columns := cols.Names()
	lg.Info().Str("source", cfg.Source.Path).Int("columns", len(columns)).Msg("source opened")

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    cfg.Storage.Kind,
		DSN:     cfg.Storage.DB.DSN,
		Table:   cfg.Storage.DB.Table,
		Columns: columns,
	})
	if err != nil {
		return sum, fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if cfg.Storage.DB.AutoCreateTable {
		start = time.Now()
		err = storage.EnsureTable(ctx, cfg.Storage.Kind, repo, cfg.Storage.DB.Table, cols)
		metrics.RecordStep(cfg.Job, "schema", err, time.Since(start))
		if err != nil {
			return sum, fmt.Errorf("apply DDL: %w", err)
		}
		lg.Info().Str("table", cfg.Storage.DB.Table).Msg("table ensured")
	}

	var dedupe *storage.Deduper
	if len(cfg.Storage.DB.DedupeKeyColumns) > 0 {
		if dedupe, err = storage.NewDeduper(columns, cfg.Storage.DB.DedupeKeyColumns); err != nil {
			return sum, err
		}
	}

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, columns, rows)
		if err == nil {
			sum.batches.Add(1)
			metrics.RecordBatches(cfg.Job, 1)
		}
		return n, err
	}

	batchSize := cfg.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	start = time.Now()
	rows := make(chan []any, max(cfg.Runtime.ChannelBuffer, 0))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		for rd.Next() {
			row := rd.Row()
			sum.read.Add(1)
			if dedupe != nil && dedupe.Seen(row) {
				sum.deduped.Add(1)
				continue
			}
			select {
			case rows <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return rd.Err()
	})

	g.Go(func() error {
		n, err := storage.LoadBatches(gctx, columns, rows, batchSize, copyFn)
		sum.inserted.Store(n)
		return err
	})

	err = g.Wait()
	metrics.RecordStep(cfg.Job, "load", err, time.Since(start))
	return sum, err
}
