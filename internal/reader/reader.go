// Package reader walks a geometry source and an attribute source in
// lockstep and hands every pair to the enrichment pipeline.
//
// A Reader is a pull cursor in the style of database/sql.Rows:
//
//	r := reader.New(open, opts)
//	defer r.Close()
//	for r.Next() {
//		row := r.Row()
//		...
//	}
//	if err := r.Err(); err != nil { ... }
//
// Sources are opened lazily on the first Schema or Next and released
// exactly once: at the end of the stream, on the first fatal error, or on
// Close, whichever comes first.
package reader

import (
	"errors"
	"fmt"

	"shpetl/internal/enrich"
	"shpetl/internal/progress"
	"shpetl/internal/schema"
)

// ErrClosed is returned by Schema on a reader closed before it was opened.
var ErrClosed = errors.New("reader: closed")

// Options configure a Reader. Config is copied by New.
type Options struct {
	Config   enrich.Config
	Deps     enrich.Deps
	Notifier *progress.Notifier
}

// Reader is not safe for concurrent use.
type Reader struct {
	open     OpenFunc
	cfg      enrich.Config
	deps     enrich.Deps
	notifier *progress.Notifier

	opened   bool
	released bool
	done     bool
	openErr  error
	err      error

	geom     GeometrySource
	attrs    AttributeSource
	pipeline *enrich.Pipeline
	schema   schema.Schema

	row      []any
	index    int
	progress float64
}

// New returns a reader over the sources returned by open. Nothing is
// opened until the first Schema or Next.
func New(open OpenFunc, opts Options) *Reader {
	return &Reader{
		open:     open,
		cfg:      opts.Config.Clone(),
		deps:     opts.Deps,
		notifier: opts.Notifier,
	}
}

func (r *Reader) ensureOpen() error {
	if r.opened {
		return r.openErr
	}
	if r.released {
		return ErrClosed
	}
	r.opened = true

	geom, attrs, err := r.open()
	if err != nil {
		r.openErr = fmt.Errorf("reader: open: %w", err)
		r.released = true
		return r.openErr
	}
	r.geom, r.attrs = geom, attrs

	p, err := enrich.New(r.cfg, attrs.Columns(), r.deps)
	if err != nil {
		r.openErr = err
		if cerr := r.release(); cerr != nil {
			r.openErr = errors.Join(err, cerr)
		}
		return r.openErr
	}
	r.pipeline = p
	r.schema = p.Schema()
	return nil
}

// Schema returns the output columns: the attribute columns followed by the
// columns of every enabled stage. It is computed once.
func (r *Reader) Schema() (schema.Schema, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	return r.schema.Clone(), nil
}

// Next advances to the next record. It returns false at the end of the
// stream or on a fatal error, after which Err reports the cause and every
// later call returns false without touching the sources.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	if err := r.ensureOpen(); err != nil {
		r.err = err
		r.done = true
		return false
	}

	gok := r.geom.Next()
	aok := r.attrs.Next()
	if !gok || !aok {
		r.finish(gok, aok)
		return false
	}

	r.index++
	shapes, records := r.geom.Count(), r.attrs.Count()
	if shapes != records {
		r.fail(&StreamInconsistencyError{Shapes: shapes, Records: records})
		return false
	}

	r.updateProgress(shapes)
	r.notifier.Notify(r.index, shapes, r.progress)

	rec := r.geom.Record()
	if rec != nil && rec.Index == 0 {
		cp := *rec
		cp.Index = r.index
		rec = &cp
	}
	row, err := r.pipeline.Apply(rec, r.attrs.Values())
	if err != nil {
		r.fail(err)
		return false
	}
	r.row = row
	return true
}

func (r *Reader) finish(gok, aok bool) {
	var err error
	switch {
	case r.geom.Err() != nil:
		err = fmt.Errorf("geometry source: %w", r.geom.Err())
	case r.attrs.Err() != nil:
		err = fmt.Errorf("attribute source: %w", r.attrs.Err())
	case gok != aok:
		shapes, records := r.index, r.index
		if gok {
			shapes++
		} else {
			records++
		}
		err = &StreamInconsistencyError{Shapes: shapes, Records: records}
	}
	if err != nil {
		r.index++
		r.fail(err)
		return
	}
	r.row = nil
	r.done = true
	if cerr := r.release(); cerr != nil {
		r.err = cerr
	}
}

func (r *Reader) fail(err error) {
	r.err = fmt.Errorf("reader: record %d: %w", r.index, err)
	r.row = nil
	r.done = true
	if cerr := r.release(); cerr != nil {
		r.err = errors.Join(r.err, cerr)
	}
}

func (r *Reader) updateProgress(total int) {
	p := r.geom.Progress()
	switch {
	case r.index >= total:
		p = 1
	case p > 1:
		p = 1
	}
	if p > r.progress {
		r.progress = p
	}
}

// release closes both sources once.
func (r *Reader) release() error {
	if r.released {
		return nil
	}
	r.released = true
	var errs []error
	if r.geom != nil {
		if err := r.geom.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close geometry source: %w", err))
		}
	}
	if r.attrs != nil {
		if err := r.attrs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close attribute source: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Row returns the current row. It belongs to the caller; the reader never
// reuses it.
func (r *Reader) Row() []any { return r.row }

// Err returns the error that stopped iteration, if any.
func (r *Reader) Err() error { return r.err }

// Index returns the 1-based index of the current record.
func (r *Reader) Index() int { return r.index }

// Progress returns the fraction of the geometry stream consumed, in [0, 1].
func (r *Reader) Progress() float64 { return r.progress }

// Close releases the sources if they are still open. It is safe to call
// more than once.
func (r *Reader) Close() error {
	r.done = true
	r.row = nil
	return r.release()
}
