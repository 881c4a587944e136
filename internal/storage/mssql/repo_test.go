package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
)

// TestCopyFromEmptyRows verifies that CopyFrom short-circuits when no rows
// are provided and does not require a live database connection.
func TestCopyFromEmptyRows(t *testing.T) {
	t.Parallel()

	r := &Repository{
		db:  nil, // must not be used in this path
		cfg: Config{Table: "dbo.t"},
	}

	got, err := r.CopyFrom(context.Background(), []string{"id", "name"}, nil)
	if err != nil {
		t.Fatalf("CopyFrom(nil...) error = %v, want nil", err)
	}
	if got != 0 {
		t.Fatalf("CopyFrom(nil...) = %d, want 0", got)
	}
}

// --- Test driver plumbing for exercising Exec and CopyFrom without a real DB --

type errDriver struct{}

type errConn struct{}

type errTx struct{}

func (d *errDriver) Open(name string) (driver.Conn, error) {
	return &errConn{}, nil
}

// Prepare is not expected to be called in our tests; if it is, fail loudly.
func (c *errConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("unexpected Prepare call")
}

func (c *errConn) Close() error { return nil }

// Begin is required by driver.Conn; database/sql calls BeginTx when available.
func (c *errConn) Begin() (driver.Tx, error) {
	return nil, errors.New("begin (legacy) should not be called")
}

// BeginTx implements driver.ConnBeginTx and always fails, to exercise the
// error path in Repository.CopyFrom.
func (c *errConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New("begin failed")
}

// ExecContext implements driver.ExecerContext and always fails, to exercise
// the error path in Repository.Exec.
func (c *errConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return nil, errors.New("exec failed")
}

// We don't expect queries in these tests.
func (c *errConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return nil, errors.New("unexpected QueryContext call")
}

func (t *errTx) Commit() error   { return nil }
func (t *errTx) Rollback() error { return nil }

var (
	testDriverOnce sync.Once
	testDriverName = "mssql_test_err"
)

// openErrDB registers and opens a test driver that fails BeginTx and ExecContext.
func openErrDB(t *testing.T) *sql.DB {
	t.Helper()

	testDriverOnce.Do(func() {
		sql.Register(testDriverName, &errDriver{})
	})
	db, err := sql.Open(testDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open(%q) error = %v", testDriverName, err)
	}
	return db
}

// --- Tests ---

// TestExecPropagatesError verifies that Exec forwards errors from the underlying
// *sql.DB.ExecContext call when the driver returns an error.
func TestExecPropagatesError(t *testing.T) {
	t.Parallel()

	db := openErrDB(t)
	r := &Repository{
		db:  db,
		cfg: Config{Table: "dbo.t"},
	}

	ctx := context.Background()
	err := r.Exec(ctx, "SELECT 1")
	if err == nil {
		t.Fatalf("Exec() error = nil, want non-nil")
	}

	// Ensure the error is the one produced by our test driver.
	if !strings.Contains(err.Error(), "exec failed") {
		t.Fatalf("Exec() error = %q, want it to contain %q", err.Error(), "exec failed")
	}
}

// TestCopyFromBeginTxError verifies that CopyFrom surfaces errors from
// db.BeginTx before any bulk-copy logic runs.
func TestCopyFromBeginTxError(t *testing.T) {
	t.Parallel()

	db := openErrDB(t)
	r := &Repository{
		db:  db,
		cfg: Config{Table: "dbo.t"},
	}

	ctx := context.Background()
	columns := []string{"id", "name"}
	rows := [][]any{
		{1, "alice"},
		{2, "bob"},
	}

	n, err := r.CopyFrom(ctx, columns, rows)
	if err == nil {
		t.Fatalf("CopyFrom() error = nil, want non-nil when BeginTx fails")
	}
	if n != 0 {
		t.Fatalf("CopyFrom() rows = %d, want 0 on error", n)
	}
	if !strings.Contains(err.Error(), "begin tx:") {
		t.Fatalf("CopyFrom() error = %q, want it wrapped with 'begin tx:'", err.Error())
	}
}

// TestNewRepositoryRejectsEmptyTable verifies that NewRepository fails before
// any DSN parsing or network access when no table is configured.
func TestNewRepositoryRejectsEmptyTable(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://localhost", Table: "  "})
	if err == nil || !strings.Contains(err.Error(), "table must not be empty") {
		t.Fatalf("NewRepository() error = %v, want empty-table error", err)
	}
}
