package attrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"shpetl/internal/schema"
)

const (
	materializedTable = "attrs"
	sqliteDateLayout  = "2006-01-02"
)

// Materialized serves attribute rows from a temporary SQLite copy of the
// DBF file. The copy lives for the lifetime of the source and is removed
// on Close.
type Materialized struct {
	path   string
	db     *sql.DB
	rows   *sql.Rows
	cols   schema.Schema
	count  int
	scan   []any
	vals   []any
	err    error
	closed bool
}

// Source is the part of an attribute source Materialize copies from.
type Source interface {
	Columns() schema.Schema
	Next() bool
	Values() []any
	Err() error
}

// Materialize copies every row of src into a new SQLite file in dir (the
// OS temp dir when empty) and opens a cursor over it. src is consumed but
// not closed. On error nothing is left behind.
func Materialize(ctx context.Context, src Source, dir string) (*Materialized, error) {
	f, err := os.CreateTemp(dir, "shpetl-attrs-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("attrstore: create temp file: %w", err)
	}
	path := f.Name()
	f.Close()

	m, err := materialize(ctx, src, path)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	log.Debug().Str("path", path).Int("rows", m.count).Msg("attributes materialized")
	return m, nil
}

func materialize(ctx context.Context, src Source, path string) (*Materialized, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("attrstore: open sqlite: %w", err)
	}
	// one connection keeps the cursor and the copy on the same file handle
	db.SetMaxOpenConns(1)

	cols := src.Columns()
	m := &Materialized{path: path, db: db, cols: cols}
	if err := m.load(ctx, src); err != nil {
		db.Close()
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", columnList(len(cols)), materializedTable))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("attrstore: query: %w", err)
	}
	m.rows = rows
	m.vals = make([]any, len(cols))
	m.scan = make([]any, len(cols))
	for i := range m.scan {
		m.scan[i] = new(any)
	}
	return m, nil
}

func (m *Materialized) load(ctx context.Context, src Source) error {
	defs := make([]string, len(m.cols))
	for i, c := range m.cols {
		defs[i] = fmt.Sprintf("c%d %s", i, sqliteType(c.Type))
	}
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", materializedTable, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("attrstore: create table: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("attrstore: begin tx: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(m.cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", materializedTable, columnList(len(m.cols)), placeholders))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("attrstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(m.cols))
	for src.Next() {
		for i, v := range src.Values() {
			args[i] = encodeCell(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("attrstore: insert row %d: %w", m.count+1, err)
		}
		m.count++
	}
	if err := src.Err(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("attrstore: read source: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("attrstore: commit: %w", err)
	}
	return nil
}

// Columns returns the native columns of the copied source.
func (m *Materialized) Columns() schema.Schema { return m.cols.Clone() }

// Count returns the number of copied rows.
func (m *Materialized) Count() int { return m.count }

// Next scans the next row.
func (m *Materialized) Next() bool {
	if m.closed || m.err != nil {
		return false
	}
	if !m.rows.Next() {
		m.err = m.rows.Err()
		return false
	}
	if err := m.rows.Scan(m.scan...); err != nil {
		m.err = fmt.Errorf("attrstore: scan: %w", err)
		return false
	}
	for i, c := range m.cols {
		v, err := decodeCell(c.Type, *(m.scan[i].(*any)))
		if err != nil {
			m.err = fmt.Errorf("attrstore: column %s: %w", c.Name, err)
			return false
		}
		m.vals[i] = v
	}
	return true
}

// Values returns the current row; the slice is reused by Next.
func (m *Materialized) Values() []any { return m.vals }

// Err returns the error that stopped Next, if any.
func (m *Materialized) Err() error { return m.err }

// Close closes the cursor and the database and removes the file. Later
// calls do nothing.
func (m *Materialized) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	if m.rows != nil {
		if err := m.rows.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("attrstore: close: %w", errors.Join(errs...))
	}
	return nil
}

// Path returns the temporary database file.
func (m *Materialized) Path() string { return m.path }

func columnList(n int) string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
	}
	return strings.Join(names, ", ")
}

func sqliteType(t schema.Type) string {
	switch t {
	case schema.TypeInt, schema.TypeBool:
		return "INTEGER"
	case schema.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func encodeCell(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(sqliteDateLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func decodeCell(t schema.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case schema.TypeBool:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected %T for bool", v)
		}
		return n != 0, nil
	case schema.TypeDate:
		s, ok := asString(v)
		if !ok {
			return nil, fmt.Errorf("unexpected %T for date", v)
		}
		d, err := time.Parse(sqliteDateLayout, s)
		if err != nil {
			return nil, err
		}
		return d, nil
	case schema.TypeString:
		if s, ok := asString(v); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case schema.TypeInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
	case schema.TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	}
	return v, nil
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}
