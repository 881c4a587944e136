// Package shape holds the in-memory form of a single shapefile geometry
// record as handed from a geometry source to the enrichment pipeline.
package shape

// Kind is the geometry family of a record. Z and M variants of the
// shapefile types collapse to their 2D kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindPoint
	KindPolyLine
	KindPolygon
)

// String returns the shapefile name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindPolyLine:
		return "PolyLine"
	case KindPolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// TagName returns the KML geometry name written into the shapeType column.
func (k Kind) TagName() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindPolyLine:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// Point is a 2D coordinate; X is longitude and Y latitude for geographic data.
type Point struct {
	X, Y float64
}

// Part is one ordered point sequence of a record (a ring for polygons, a
// path for polylines, a single point for points).
type Part []Point

// Record is one geometry record. Index is 1-based and matches the
// attribute row with the same position. Err carries the parse error text
// of a record the source could not decode; such records have no parts.
type Record struct {
	Index int
	Kind  Kind
	Parts []Part
	Err   string
}

// Valid reports whether the record was decoded without error.
func (r *Record) Valid() bool {
	return r != nil && r.Err == ""
}

// NumPoints returns the total number of points across all parts.
func (r *Record) NumPoints() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, p := range r.Parts {
		n += len(p)
	}
	return n
}
