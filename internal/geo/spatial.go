// Package geo builds the spatial values of the enrichment pipeline. It
// defines the narrow Engine contract the pipeline depends on and an
// implementation over github.com/paulmach/orb.
package geo

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// DefaultSRID is WGS 84, the reference system of most published shapefiles.
const DefaultSRID = 4326

// Part is one shapefile part turned into a simple geometry: a polygon for
// rings, a line string for paths, a point for point records.
type Part struct {
	G orb.Geometry
}

// Geography is a geometry on the sphere (longitude/latitude coordinates).
type Geography struct {
	SRID int
	G    orb.Geometry
}

// Geometry is a geometry in a planar coordinate space.
type Geometry struct {
	SRID int
	G    orb.Geometry
}

// IsEmpty reports whether g carries no coordinates.
func (g Geography) IsEmpty() bool { return isEmpty(g.G) }

// IsEmpty reports whether g carries no coordinates.
func (g Geometry) IsEmpty() bool { return isEmpty(g.G) }

// Value encodes g as EWKB so every SQL sink can bind it.
func (g Geography) Value() (driver.Value, error) { return encodeEWKB(g.G, g.SRID) }

// Value encodes g as EWKB so every SQL sink can bind it.
func (g Geometry) Value() (driver.Value, error) { return encodeEWKB(g.G, g.SRID) }

// String returns the WKT form, mostly for logs and test failures.
func (g Geography) String() string { return toWKT(g.G) }

// String returns the WKT form, mostly for logs and test failures.
func (g Geometry) String() string { return toWKT(g.G) }

// GeoJSON renders g as a GeoJSON geometry object.
func GeoJSON(g orb.Geometry) (string, error) {
	if g == nil {
		g = orb.Collection{}
	}
	b, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return "", fmt.Errorf("geo: marshal geojson: %w", err)
	}
	return string(b), nil
}

func encodeEWKB(g orb.Geometry, srid int) (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	b, err := ewkb.Marshal(g, srid)
	if err != nil {
		return nil, fmt.Errorf("geo: marshal ewkb: %w", err)
	}
	return b, nil
}

func toWKT(g orb.Geometry) string {
	if g == nil {
		return "<nil>"
	}
	return wkt.MarshalString(g)
}

func isEmpty(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if !isEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range v {
			if !isEmpty(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
