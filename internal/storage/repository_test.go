package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"testing"

	"shpetl/internal/schema"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	closed bool
	execs  []string
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) Close() { f.closed = true }

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}

	// Ensure ListKinds contains the registered kind.
	kinds := ListKinds()
	found := false
	for _, k := range kinds {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, kinds)
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported storage.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory (useful for tests and dynamic wiring).
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 { // only the second factory should have been used
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestListKinds_Snapshot performs a shallow sanity check that ListKinds returns
// a copy (mutations by caller do not affect internal registry).
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	k := "snap"
	Register(k, func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	// Mutate the returned slice; registry should be unaffected.
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

// TestRegister_AllowsErrors shows factories can return errors that bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

// TestNew_PassesConfig verifies the factory receives the caller's Config.
func TestNew_PassesConfig(t *testing.T) {
	t.Parallel()

	var got Config
	Register("capture", func(ctx context.Context, cfg Config) (Repository, error) {
		got = cfg
		return &fakeRepo{}, nil
	})

	want := Config{Kind: "capture", DSN: "file:x.db", Table: "parcels", Columns: []string{"NAME", "shapeType"}}
	if _, err := New(context.Background(), want); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("factory cfg = %+v, want %+v", got, want)
	}
}

type valuer struct {
	v   driver.Value
	err error
}

func (v valuer) Value() (driver.Value, error) { return v.v, v.err }

// TestDriverValues verifies Valuer cells are resolved and other cells pass
// through untouched.
func TestDriverValues(t *testing.T) {
	t.Parallel()

	in := []any{"a", int64(1), nil, valuer{v: []byte{1, 2}}, valuer{v: nil}}
	out, err := DriverValues(in)
	if err != nil {
		t.Fatalf("DriverValues error: %v", err)
	}
	want := []any{"a", int64(1), nil, []byte{1, 2}, nil}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("DriverValues = %#v, want %#v", out, want)
	}
	if _, ok := in[3].(valuer); !ok {
		t.Fatalf("input row was modified")
	}

	boom := errors.New("boom")
	if _, err := DriverValues([]any{valuer{err: boom}}); !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
}

// TestEnsureTable dispatches to the bootstrapper registered for the kind.
func TestEnsureTable(t *testing.T) {
	t.Parallel()

	var gotTable string
	var gotCols schema.Schema
	RegisterDDL("ddl-fake", func(ctx context.Context, repo Repository, table string, cols schema.Schema) error {
		gotTable, gotCols = table, cols
		return repo.Exec(ctx, "CREATE TABLE "+table)
	})

	repo := &fakeRepo{}
	cols := schema.Schema{{Name: "NAME", Type: schema.TypeString}, {Name: "shapeType", Type: schema.TypeString, Ordinal: 1}}
	if err := EnsureTable(context.Background(), "ddl-fake", repo, "parcels", cols); err != nil {
		t.Fatalf("EnsureTable error: %v", err)
	}
	if gotTable != "parcels" || len(gotCols) != 2 {
		t.Fatalf("bootstrapper got table=%q cols=%v", gotTable, gotCols)
	}
	if len(repo.execs) != 1 || repo.execs[0] != "CREATE TABLE parcels" {
		t.Fatalf("execs = %v", repo.execs)
	}

	if err := EnsureTable(context.Background(), "no-ddl", repo, "t", cols); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}
