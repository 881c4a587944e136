package attrstore

import (
	"fmt"

	"shpetl/internal/datasource/shapefile"
	"shpetl/internal/schema"
)

// DBF reads attribute rows straight from the .dbf file in record order.
type DBF struct {
	t      *shapefile.Table
	cols   schema.Schema
	vals   []any
	closed bool
}

// OpenDBF opens the .dbf file of paths. The .shp file is not touched.
func OpenDBF(paths shapefile.Paths) (*DBF, error) {
	t, err := shapefile.OpenTable(paths.Dbf)
	if err != nil {
		return nil, fmt.Errorf("attrstore: %w", err)
	}
	cols := columnsOf(t.Fields())
	return &DBF{
		t:    t,
		cols: cols,
		vals: make([]any, len(cols)),
	}, nil
}

// Columns returns the native columns.
func (d *DBF) Columns() schema.Schema { return d.cols.Clone() }

// Count returns the record count from the DBF header.
func (d *DBF) Count() int { return d.t.Count() }

// Next decodes the next record.
func (d *DBF) Next() bool {
	if d.closed || !d.t.Next() {
		return false
	}
	for i, c := range d.cols {
		d.vals[i] = decode(c.Type, d.t.Attribute(i))
	}
	return true
}

// Values returns the current row; the slice is reused by Next.
func (d *DBF) Values() []any { return d.vals }

// Err returns the read error that stopped Next, such as a file holding
// fewer rows than its header declares.
func (d *DBF) Err() error { return d.t.Err() }

// Close closes the underlying files. Later calls do nothing.
func (d *DBF) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.t.Close(); err != nil {
		return fmt.Errorf("attrstore: %w", err)
	}
	return nil
}
