package enrich

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"shpetl/internal/geo"
	"shpetl/internal/shape"
)

// run executes one stage, writing exactly len(cells) values.
func (p *Pipeline) run(st *rowState, s slot, cells []any) error {
	switch s.Stage {
	case StageShapeType:
		cells[0] = st.rec.Kind.TagName()
		return nil

	case StageGeography:
		g, err := st.geography()
		if err != nil {
			return err
		}
		if g != nil {
			cells[0] = *g
		}
		return nil

	case StageGeographyGeoJSON:
		if _, err := st.geography(); err != nil {
			return err
		}
		return p.alternate(st, cells, geographies(st.geogParts))

	case StageGeometry:
		g, err := st.geometry()
		if err != nil {
			return err
		}
		if g != nil {
			cells[0] = *g
		}
		return nil

	case StageGeometryGeoJSON:
		if _, err := st.geometry(); err != nil {
			return err
		}
		return p.alternate(st, cells, geometries(st.geomParts))

	case StageSoundex:
		p.encode(st, s, cells, p.deps.Soundex.Encode)
		return nil

	case StageSoundexDM:
		p.encode(st, s, cells, p.deps.SoundexDM.Encode)
		return nil

	case StageLineEndpoints:
		return p.endpoints(st, cells)

	case StageAddressRange:
		for i, src := range s.sources {
			r := ParseAddressRange(text(st.row[src]))
			if r.HasNumber {
				cells[2*i] = r.Number
			} else {
				cells[2*i] = nil
			}
			cells[2*i+1] = r.Unit
		}
		return nil

	case StageEvenOdd:
		return p.evenOdd(st, s, cells)

	case StageProjection:
		cells[0] = p.project(st)
		return nil

	case StageArea:
		cells[0] = 0.0
		g, err := st.geography()
		if err != nil || g == nil || g.IsEmpty() {
			return nil
		}
		if a, err := p.deps.Engine.Area(*g); err == nil {
			cells[0] = a
		}
		return nil

	case StageCentroid:
		cells[0], cells[1] = 0.0, 0.0
		g, err := st.geometry()
		if err != nil || g == nil || g.IsEmpty() {
			return nil
		}
		if c, err := p.deps.Engine.Centroid(*g); err == nil {
			cells[0], cells[1] = c[0], c[1]
		}
		return nil
	}
	return fmt.Errorf("unknown stage %d", int(s.Stage))
}

// fillDefaults writes the cells a failed stage contributes under
// PolicyTolerant.
func fillDefaults(s slot, cells []any) {
	for i := range cells {
		switch s.Stage {
		case StageGeographyGeoJSON, StageGeometryGeoJSON, StageSoundex, StageSoundexDM:
			cells[i] = ""
		case StageLineEndpoints, StageArea, StageCentroid, StageImportTime:
			cells[i] = 0.0
		case StageAddressRange:
			if i%2 == 1 {
				cells[i] = ""
			} else {
				cells[i] = nil
			}
		case StageShapeType:
			cells[i] = shape.KindUnknown.TagName()
		default:
			cells[i] = nil
		}
	}
}

// alternate writes the per-part shapes as one GeoJSON multi geometry.
func (p *Pipeline) alternate(st *rowState, cells []any, parts []orb.Geometry) error {
	cells[0] = ""
	if len(parts) == 0 {
		return nil
	}
	if limit := p.cfg.MaxAlternateParts; limit > 0 && len(st.rec.Parts) >= limit {
		return nil
	}
	js, err := geo.GeoJSON(multi(st.rec.Kind, parts))
	if err != nil {
		return err
	}
	cells[0] = js
	return nil
}

func geographies(gs []geo.Geography) []orb.Geometry {
	out := make([]orb.Geometry, len(gs))
	for i, g := range gs {
		out[i] = g.G
	}
	return out
}

func geometries(gs []geo.Geometry) []orb.Geometry {
	out := make([]orb.Geometry, len(gs))
	for i, g := range gs {
		out[i] = g.G
	}
	return out
}

// multi collects parts of one kind into the matching multi geometry.
func multi(kind shape.Kind, parts []orb.Geometry) orb.Geometry {
	switch kind {
	case shape.KindPolygon:
		mp := make(orb.MultiPolygon, 0, len(parts))
		for _, g := range parts {
			if poly, ok := g.(orb.Polygon); ok {
				mp = append(mp, poly)
			}
		}
		return mp
	case shape.KindPolyLine:
		ml := make(orb.MultiLineString, 0, len(parts))
		for _, g := range parts {
			if ls, ok := g.(orb.LineString); ok {
				ml = append(ml, ls)
			}
		}
		return ml
	case shape.KindPoint:
		mp := make(orb.MultiPoint, 0, len(parts))
		for _, g := range parts {
			if pt, ok := g.(orb.Point); ok {
				mp = append(mp, pt)
			}
		}
		return mp
	}
	return orb.Collection(parts)
}

func (p *Pipeline) encode(st *rowState, s slot, cells []any, enc func(string) string) {
	for i, src := range s.sources {
		v := st.row[src]
		if v == nil {
			cells[i] = ""
			continue
		}
		cells[i] = enc(text(v))
	}
}

func (p *Pipeline) endpoints(st *rowState, cells []any) error {
	for i := range cells {
		cells[i] = 0.0
	}
	if st.rec.Kind != shape.KindPolyLine {
		return nil
	}
	g, err := st.geometry()
	if err != nil || g == nil || g.IsEmpty() {
		return nil
	}
	from, err := p.deps.Engine.StartPoint(*g)
	if err != nil {
		return fmt.Errorf("start point: %w", err)
	}
	to, err := p.deps.Engine.EndPoint(*g)
	if err != nil {
		return fmt.Errorf("end point: %w", err)
	}
	cells[0], cells[1], cells[2], cells[3] = from[0], from[1], to[0], to[1]
	return nil
}

func (p *Pipeline) evenOdd(st *rowState, s slot, cells []any) error {
	for i, src := range s.sources {
		cells[i] = nil
		v := st.row[src]
		if v == nil {
			continue
		}
		n, err := integer(v)
		if err != nil {
			return fmt.Errorf("column %d: %w", src, err)
		}
		if n > 0 || p.cfg.EvenOddStrictParity {
			cells[i] = n%2 == 0
		}
	}
	return nil
}

// project returns the Albers projection of the record's geography, or nil
// when there is nothing to project or projecting fails.
func (p *Pipeline) project(st *rowState) any {
	g, err := st.geography()
	if err != nil || g == nil || g.IsEmpty() {
		return nil
	}
	// Only a geography with a valid envelope is projected. The center
	// itself is not needed: the projector has a fixed origin.
	if _, err := p.deps.Engine.EnvelopeCenter(*g); err != nil {
		return nil
	}
	out, err := p.deps.Engine.Project(*g, p.deps.Projector)
	if err != nil {
		return nil
	}
	return out
}

// text renders an attribute cell as the string a phonetic encoder or the
// address parser sees.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

// integer reads an attribute cell as an integer the way numeric DBF
// columns are exposed.
func integer(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
