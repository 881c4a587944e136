// Batched loading of enriched rows.
//
// LoadBatches drains rows produced by the enrichment pipeline, groups them
// into batches and hands each batch to the backend's bulk insert (Postgres
// COPY, SQL Server bulk copy, MySQL multi-row INSERT, SQLite prepared
// INSERT in one transaction). Every committed batch logs running totals and
// the row rate since the previous batch.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// CopyFn inserts rows aligned to columns and returns the number of rows the
// backend reports as inserted. Cells may still hold driver.Valuer values
// such as geo.Geography; backends convert them with DriverValues. The rows
// slice belongs to the callee once passed.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains in, groups rows into batches of batchSize and calls
// copyFn for each non-empty batch. Every row must carry exactly one cell per
// column. It returns the rows reported by copyFn and the first error, which
// is ctx.Err() when canceled.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("storage: batch size must be > 0, got %d", batchSize)
	}
	if copyFn == nil {
		return 0, fmt.Errorf("storage: copyFn must not be nil")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("storage: no columns to load")
	}

	var (
		total    int64
		received int64
		batches  int64
		batch    = make([][]any, 0, batchSize)
		start    = time.Now()
		last     = start
		lastRows int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = make([][]any, 0, batchSize)
		if err != nil {
			log.Error().Err(err).
				Int64("batch", batches+1).
				Int64("rows", n).
				Int64("rows_total", total).
				Msg("load: batch failed")
			return fmt.Errorf("storage: batch %d: %w", batches+1, err)
		}

		batches++
		now := time.Now()
		since := now.Sub(last)
		rate := float64(0)
		if since > 0 {
			rate = float64(total-lastRows) / since.Seconds()
		}
		log.Info().
			Int64("batch", batches).
			Int64("rows", n).
			Int64("rows_total", total).
			Float64("rows_per_sec", rate).
			Dur("elapsed", now.Sub(start).Truncate(time.Millisecond)).
			Msg("load: batch committed")
		last, lastRows = now, total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				log.Info().
					Int64("batches", batches).
					Int64("rows_total", total).
					Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).
					Msg("load: input drained")
				return total, nil
			}
			received++
			if len(row) != len(columns) {
				return total, fmt.Errorf("storage: row %d has %d cells for %d columns", received, len(row), len(columns))
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
