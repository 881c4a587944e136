// Package storage contains storage-agnostic contracts and utilities for the
// sink side of a run: the Repository interface every backend implements, a
// registry of backend factories keyed by storage kind, the DDL bootstrap
// registry, the batched loader and the in-run deduper.
//
// Backends register themselves from init; import storage/all to enable all
// of them.
package storage

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal contract of a bulk-load sink.
type Repository interface {
	// CopyFrom inserts rows whose cells are aligned to columns and returns
	// the number of rows the backend reports as inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases the connection pool.
	Close()
}

// Config is the backend-agnostic repository configuration.
type Config struct {
	// Kind selects the backend (e.g. "postgres").
	Kind string
	DSN  string
	// Table is the destination table, optionally schema-qualified.
	Table string
	// Columns is the ordered destination column list.
	Columns []string
}

// Factory builds a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository through the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DriverValues returns a copy of row with every driver.Valuer cell replaced
// by its driver value. Spatial cells become EWKB bytes this way, which the
// bulk APIs (COPY, bulk copy) do not resolve on their own.
func DriverValues(row []any) ([]any, error) {
	out := make([]any, len(row))
	for i, v := range row {
		dv, ok := v.(driver.Valuer)
		if !ok {
			out[i] = v
			continue
		}
		val, err := dv.Value()
		if err != nil {
			return nil, fmt.Errorf("storage: cell %d: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}
