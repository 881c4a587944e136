package shapefile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/jonas-p/go-shp"

	"shpetl/internal/shape"
)

const readBufferSize = 64 << 10

// GeometrySource streams the records of a .shp file. It owns the file
// handle; go-shp only sees a buffered reader over it.
type GeometrySource struct {
	paths  Paths
	f      *os.File
	sr     shp.SequentialReader
	index  *Index
	size   int64
	read   int
	cur    *shape.Record
	err    error
	closed bool
}

// Open resolves path and opens its geometry and index files. The .dbf
// file must exist but is not opened here.
func Open(path string) (*GeometrySource, error) {
	paths, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	return OpenPaths(paths)
}

// OpenPaths opens already resolved paths.
func OpenPaths(paths Paths) (*GeometrySource, error) {
	ix, err := ReadIndex(paths.Shx)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(paths.Shp)
	if err != nil {
		return nil, fmt.Errorf("shapefile: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shapefile: %w", err)
	}
	sr := shp.SequentialReaderFromExt(io.NopCloser(bufio.NewReaderSize(f, readBufferSize)), newBlankTable())
	if err := sr.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("shapefile: %s: %w", paths.Shp, err)
	}
	return &GeometrySource{paths: paths, f: f, sr: sr, index: ix, size: fi.Size()}, nil
}

// Paths returns the files backing the source.
func (g *GeometrySource) Paths() Paths { return g.paths }

// Next reads the next record. A stream that ends before the record count
// of the index is reported as io.ErrUnexpectedEOF.
func (g *GeometrySource) Next() bool {
	if g.closed || g.err != nil {
		return false
	}
	if !g.sr.Next() {
		switch err := g.sr.Err(); {
		case err != nil:
			g.err = fmt.Errorf("shapefile: record %d: %w", g.read+1, err)
		case g.read < g.index.Len():
			g.err = fmt.Errorf("shapefile: %s ends after %d of %d indexed records: %w",
				g.paths.Shp, g.read, g.index.Len(), io.ErrUnexpectedEOF)
		}
		g.cur = nil
		return false
	}
	_, s := g.sr.Shape()
	g.read++
	g.cur = convert(g.read, s)
	return true
}

// Record returns the current record.
func (g *GeometrySource) Record() *shape.Record { return g.cur }

// Err returns the read error that stopped Next, if any.
func (g *GeometrySource) Err() error { return g.err }

// Count returns the record count declared by the index.
func (g *GeometrySource) Count() int { return g.index.Len() }

// Progress returns the fraction of the .shp file consumed. It is 0 until
// the first record is read.
func (g *GeometrySource) Progress() float64 {
	if g.size <= 0 || g.read == 0 {
		return 0
	}
	p := float64(g.index.Consumed(g.read)) / float64(g.size)
	if p > 1 {
		p = 1
	}
	return p
}

// Close closes the .shp file, whatever state the stream is in. Later
// calls do nothing.
func (g *GeometrySource) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.cur = nil
	if err := g.f.Close(); err != nil {
		return fmt.Errorf("shapefile: close %s: %w", g.paths.Shp, err)
	}
	return nil
}

// convert maps a go-shp shape to a record. Z and M values are dropped;
// multipoint and multipatch shapes become Unknown without parts.
func convert(index int, s shp.Shape) *shape.Record {
	rec := &shape.Record{Index: index}
	switch v := s.(type) {
	case *shp.Point:
		rec.Kind = shape.KindPoint
		rec.Parts = []shape.Part{{{X: v.X, Y: v.Y}}}
	case *shp.PointZ:
		rec.Kind = shape.KindPoint
		rec.Parts = []shape.Part{{{X: v.X, Y: v.Y}}}
	case *shp.PointM:
		rec.Kind = shape.KindPoint
		rec.Parts = []shape.Part{{{X: v.X, Y: v.Y}}}
	case *shp.PolyLine:
		rec.Kind = shape.KindPolyLine
		rec.Parts, rec.Err = split(v.Parts, v.Points)
	case *shp.PolyLineZ:
		rec.Kind = shape.KindPolyLine
		rec.Parts, rec.Err = split(v.Parts, v.Points)
	case *shp.PolyLineM:
		rec.Kind = shape.KindPolyLine
		rec.Parts, rec.Err = split(v.Parts, v.Points)
	case *shp.Polygon:
		rec.Kind = shape.KindPolygon
		rec.Parts, rec.Err = split(v.Parts, v.Points)
	case *shp.PolygonZ:
		rec.Kind = shape.KindPolygon
		rec.Parts, rec.Err = split(v.Parts, v.Points)
	case *shp.PolygonM:
		rec.Kind = shape.KindPolygon
		rec.Parts, rec.Err = split(v.Parts, v.Points)
	default:
		rec.Kind = shape.KindUnknown
	}
	return rec
}

// split cuts points into parts at the given start offsets. Offsets that
// are out of range or decreasing are reported as a parse error.
func split(starts []int32, points []shp.Point) ([]shape.Part, string) {
	parts := make([]shape.Part, 0, len(starts))
	for i, s := range starts {
		end := int32(len(points))
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if s < 0 || s > end || end > int32(len(points)) {
			return nil, fmt.Sprintf("part %d has invalid bounds [%d,%d) for %d points", i, s, end, len(points))
		}
		part := make(shape.Part, 0, end-s)
		for _, pt := range points[s:end] {
			part = append(part, shape.Point{X: pt.X, Y: pt.Y})
		}
		parts = append(parts, part)
	}
	return parts, ""
}
