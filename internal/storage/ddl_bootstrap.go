package storage

import (
	"context"
	"fmt"
	"sync"

	"shpetl/internal/schema"
)

// DDLBootstrapper is a backend-specific function that:
//   - maps the composed row schema to a dialect table definition, and
//   - applies the appropriate DDL via repo.Exec (typically CREATE TABLE).
//
// Backends (postgres, mssql, sqlite, mysql) register their implementation
// for a given storage kind at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, cols schema.Schema) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given storage
// kind. It is typically called from backend packages' init() functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable locates the DDLBootstrapper for kind and invokes it with the
// reader's composed schema. Callers do not need to know which backend they
// are using.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, cols schema.Schema) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table, cols)
}
