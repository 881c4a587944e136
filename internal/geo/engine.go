package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"shpetl/internal/shape"
)

// ErrEmpty is returned by operations that need coordinates.
var ErrEmpty = errors.New("geo: empty geometry")

// Engine is the spatial algebra the enrichment pipeline relies on.
type Engine interface {
	// BuildPart turns the points of one shapefile part into a simple
	// geometry of the family given by kind.
	BuildPart(kind shape.Kind, points shape.Part) (Part, error)
	ToGeography(p Part, srid int) (Geography, error)
	ToGeometry(p Part, srid int) (Geometry, error)
	UnionGeography(a, b Geography) (Geography, error)
	UnionGeometry(a, b Geometry) (Geometry, error)
	EnvelopeCenter(g Geography) (orb.Point, error)
	Project(g Geography, p Projector) (Geometry, error)
	Area(g Geography) (float64, error)
	Centroid(g Geometry) (orb.Point, error)
	StartPoint(g Geometry) (orb.Point, error)
	EndPoint(g Geometry) (orb.Point, error)
}

// OrbEngine implements Engine with orb; polygon unions go through polyclip.
type OrbEngine struct{}

var _ Engine = OrbEngine{}

// BuildPart implements Engine. Rings are closed when the source left them
// open and must have at least three distinct vertices.
func (OrbEngine) BuildPart(kind shape.Kind, points shape.Part) (Part, error) {
	if len(points) == 0 {
		return Part{}, ErrEmpty
	}
	switch kind {
	case shape.KindPoint:
		p := points[0]
		return Part{G: orb.Point{p.X, p.Y}}, nil

	case shape.KindPolyLine:
		if len(points) < 2 {
			return Part{}, fmt.Errorf("geo: line part needs 2 points, got %d", len(points))
		}
		ls := make(orb.LineString, len(points))
		for i, p := range points {
			ls[i] = orb.Point{p.X, p.Y}
		}
		return Part{G: ls}, nil

	case shape.KindPolygon:
		ring := make(orb.Ring, 0, len(points)+1)
		for _, p := range points {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		if len(ring) < 4 {
			return Part{}, fmt.Errorf("geo: ring needs 3 distinct points, got %d", len(ring)-1)
		}
		return Part{G: orb.Polygon{ring}}, nil

	default:
		return Part{}, fmt.Errorf("geo: unsupported shape kind %s", kind)
	}
}

// ToGeography implements Engine. Coordinates must be valid longitudes and
// latitudes.
func (OrbEngine) ToGeography(p Part, srid int) (Geography, error) {
	if isEmpty(p.G) {
		return Geography{}, ErrEmpty
	}
	var bad error
	forEachPoint(p.G, func(pt orb.Point) {
		if bad != nil {
			return
		}
		if pt[1] < -90 || pt[1] > 90 || math.IsNaN(pt[1]) {
			bad = fmt.Errorf("geo: latitude %v out of range", pt[1])
		} else if pt[0] < -180 || pt[0] > 180 || math.IsNaN(pt[0]) {
			bad = fmt.Errorf("geo: longitude %v out of range", pt[0])
		}
	})
	if bad != nil {
		return Geography{}, bad
	}
	return Geography{SRID: srid, G: orb.Clone(p.G)}, nil
}

// ToGeometry implements Engine.
func (OrbEngine) ToGeometry(p Part, srid int) (Geometry, error) {
	if isEmpty(p.G) {
		return Geometry{}, ErrEmpty
	}
	return Geometry{SRID: srid, G: orb.Clone(p.G)}, nil
}

// UnionGeography implements Engine. Parts of a shapefile record are small
// enough that the union is computed on the longitude/latitude plane.
func (OrbEngine) UnionGeography(a, b Geography) (Geography, error) {
	g, err := union(a.G, b.G)
	if err != nil {
		return Geography{}, err
	}
	return Geography{SRID: a.SRID, G: g}, nil
}

// UnionGeometry implements Engine.
func (OrbEngine) UnionGeometry(a, b Geometry) (Geometry, error) {
	g, err := union(a.G, b.G)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{SRID: a.SRID, G: g}, nil
}

// EnvelopeCenter implements Engine.
func (OrbEngine) EnvelopeCenter(g Geography) (orb.Point, error) {
	if g.IsEmpty() {
		return orb.Point{}, ErrEmpty
	}
	return g.G.Bound().Center(), nil
}

// Project implements Engine. The result has SRID 0: projected coordinates
// are not registered in any catalogue.
func (OrbEngine) Project(g Geography, p Projector) (Geometry, error) {
	if g.IsEmpty() {
		return Geometry{}, ErrEmpty
	}
	if p == nil {
		return Geometry{}, fmt.Errorf("geo: nil projector")
	}
	out := project.Geometry(orb.Clone(g.G), p.Project)
	var bad bool
	forEachPoint(out, func(pt orb.Point) {
		if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
			bad = true
		}
	})
	if bad {
		return Geometry{}, fmt.Errorf("geo: geometry outside projection domain")
	}
	return Geometry{G: out}, nil
}

// Area implements Engine; the result is in square meters on the sphere.
func (OrbEngine) Area(g Geography) (float64, error) {
	if g.IsEmpty() {
		return 0, ErrEmpty
	}
	return math.Abs(orbgeo.Area(g.G)), nil
}

// Centroid implements Engine.
func (OrbEngine) Centroid(g Geometry) (orb.Point, error) {
	if g.IsEmpty() {
		return orb.Point{}, ErrEmpty
	}
	c, _ := planar.CentroidArea(g.G)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, fmt.Errorf("geo: degenerate centroid")
	}
	return c, nil
}

// StartPoint implements Engine for line geometries.
func (OrbEngine) StartPoint(g Geometry) (orb.Point, error) {
	ls, err := lines(g.G)
	if err != nil {
		return orb.Point{}, err
	}
	return ls[0][0], nil
}

// EndPoint implements Engine for line geometries.
func (OrbEngine) EndPoint(g Geometry) (orb.Point, error) {
	ls, err := lines(g.G)
	if err != nil {
		return orb.Point{}, err
	}
	last := ls[len(ls)-1]
	return last[len(last)-1], nil
}

// lines returns the non-empty line strings of g in order.
func lines(g orb.Geometry) (orb.MultiLineString, error) {
	var out orb.MultiLineString
	switch v := g.(type) {
	case orb.LineString:
		out = orb.MultiLineString{v}
	case orb.MultiLineString:
		out = v
	case nil:
		return nil, ErrEmpty
	default:
		return nil, fmt.Errorf("geo: %s is not a curve", g.GeoJSONType())
	}
	kept := out[:0:0]
	for _, ls := range out {
		if len(ls) > 0 {
			kept = append(kept, ls)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmpty
	}
	return kept, nil
}

func forEachPoint(g orb.Geometry, fn func(orb.Point)) {
	switch v := g.(type) {
	case orb.Point:
		fn(v)
	case orb.MultiPoint:
		for _, p := range v {
			fn(p)
		}
	case orb.LineString:
		for _, p := range v {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range v {
			forEachPoint(ls, fn)
		}
	case orb.Ring:
		for _, p := range v {
			fn(p)
		}
	case orb.Polygon:
		for _, r := range v {
			forEachPoint(r, fn)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			forEachPoint(p, fn)
		}
	case orb.Collection:
		for _, c := range v {
			forEachPoint(c, fn)
		}
	}
}
