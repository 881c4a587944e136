package reader

import (
	"fmt"

	"shpetl/internal/schema"
	"shpetl/internal/shape"
)

// GeometrySource yields shape records in file order.
type GeometrySource interface {
	Next() bool
	Record() *shape.Record
	Err() error
	// Count is the number of records the source declares.
	Count() int
	// Progress is the fraction of the geometry stream consumed so far.
	Progress() float64
	Close() error
}

// AttributeSource yields attribute rows aligned 1:1 with the geometry
// records.
type AttributeSource interface {
	Columns() schema.Schema
	Count() int
	Next() bool
	// Values returns the current row. The slice may be reused by the next
	// call to Next.
	Values() []any
	Err() error
	Close() error
}

// OpenFunc opens both sources. It is called at most once, on the first
// Schema or Next. On error it must leave nothing open.
type OpenFunc func() (GeometrySource, AttributeSource, error)

// StreamInconsistencyError reports that the geometry and attribute sources
// disagree on the number of records.
type StreamInconsistencyError struct {
	Shapes  int
	Records int
}

func (e *StreamInconsistencyError) Error() string {
	return fmt.Sprintf("stream inconsistency: %d shapes but %d attribute records", e.Shapes, e.Records)
}
