package enrich

import (
	"fmt"

	"shpetl/internal/schema"
)

// Stage identifies one enrichment stage. The numeric order is the order in
// which stages run and in which their columns appear.
type Stage int

const (
	StageShapeType Stage = iota + 1
	StageGeography
	StageGeographyGeoJSON
	StageGeometry
	StageGeometryGeoJSON
	StageSoundex
	StageSoundexDM
	StageLineEndpoints
	StageAddressRange
	StageEvenOdd
	StageProjection
	StageArea
	StageCentroid
	StageImportTime
)

var stageNames = [...]string{
	StageShapeType:        "shape-type",
	StageGeography:        "geography",
	StageGeographyGeoJSON: "geography-geojson",
	StageGeometry:         "geometry",
	StageGeometryGeoJSON:  "geometry-geojson",
	StageSoundex:          "soundex",
	StageSoundexDM:        "soundex-dm",
	StageLineEndpoints:    "line-endpoints",
	StageAddressRange:     "address-range",
	StageEvenOdd:          "even-odd",
	StageProjection:       "projection",
	StageArea:             "area",
	StageCentroid:         "centroid",
	StageImportTime:       "import-time",
}

func (s Stage) String() string {
	if s >= StageShapeType && s <= StageImportTime {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Output column names.
const (
	ColShapeType         = "shapeType"
	ColGeography         = "shapeGeog"
	ColGeographyGeoJSON  = "shapeGeogAsGeoJSON"
	ColGeometry          = "shapeGeom"
	ColGeometryGeoJSON   = "shapeGeomAsGeoJSON"
	ColGeometryProjected = "shapeGeomProjected"
	ColArea              = "shapeArea"
	ColCentroidX         = "CentroidX"
	ColCentroidY         = "CentroidY"
	ColImportTime        = "importTime"
	suffixSoundex        = "_Soundex"
	suffixSoundexDM      = "_SoundexDM"
	suffixAddressNumber  = "_Number"
	suffixAddressUnit    = "_Unit"
	suffixEvenOdd        = "_Even"
)

// DefaultLineEndpointColumns names the endpoint cells when the
// configuration does not.
var DefaultLineEndpointColumns = []string{"FromLongitude", "FromLatitude", "ToLongitude", "ToLatitude"}

// Window is the cell range a stage writes.
type Window struct {
	Stage  Stage
	Offset int
	Width  int
}

// Layout is the compiled shape of every output row: the attribute columns
// followed by one window per enabled stage, in stage order.
type Layout struct {
	Base    int
	Width   int
	Windows []Window
	Columns schema.Schema
}

// Window returns the window of s and whether s is enabled.
func (l Layout) Window(s Stage) (Window, bool) {
	for _, w := range l.Windows {
		if w.Stage == s {
			return w, true
		}
	}
	return Window{}, false
}

// slot is one compiled stage: its window plus the source ordinals of the
// per-column stages.
type slot struct {
	Window
	sources []int
	columns []schema.Column
}

// compile replays the stage order against cfg and base. It is the single
// source of both the schema and the row layout.
func compile(cfg Config, base schema.Schema) ([]slot, error) {
	var slots []slot
	offset := len(base)

	add := func(s Stage, sources []int, cols ...schema.Column) {
		slots = append(slots, slot{
			Window:  Window{Stage: s, Offset: offset, Width: len(cols)},
			sources: sources,
			columns: cols,
		})
		offset += len(cols)
	}
	resolve := func(s Stage, names []string) ([]int, error) {
		out := make([]int, len(names))
		for i, n := range names {
			idx := base.Index(n)
			if idx < 0 {
				return nil, fmt.Errorf("enrich: stage %s: unknown source column %q", s, n)
			}
			out[i] = idx
		}
		return out, nil
	}
	perColumn := func(s Stage, names []string, mk func(src string) []schema.Column) error {
		src, err := resolve(s, names)
		if err != nil {
			return err
		}
		var cols []schema.Column
		for _, i := range src {
			cols = append(cols, mk(base[i].Name)...)
		}
		add(s, src, cols...)
		return nil
	}

	add(StageShapeType, nil, col(ColShapeType, schema.TypeString))
	if cfg.Geography {
		add(StageGeography, nil, col(ColGeography, schema.TypeGeography))
	}
	if cfg.GeographyGeoJSON {
		add(StageGeographyGeoJSON, nil, col(ColGeographyGeoJSON, schema.TypeString))
	}
	if cfg.Geometry {
		add(StageGeometry, nil, col(ColGeometry, schema.TypeGeometry))
	}
	if cfg.GeometryGeoJSON {
		add(StageGeometryGeoJSON, nil, col(ColGeometryGeoJSON, schema.TypeString))
	}
	if cfg.Soundex {
		if err := perColumn(StageSoundex, cfg.SoundexColumns, func(src string) []schema.Column {
			return []schema.Column{col(src+suffixSoundex, schema.TypeString)}
		}); err != nil {
			return nil, err
		}
	}
	if cfg.SoundexDM {
		if err := perColumn(StageSoundexDM, cfg.SoundexDMColumns, func(src string) []schema.Column {
			return []schema.Column{col(src+suffixSoundexDM, schema.TypeString)}
		}); err != nil {
			return nil, err
		}
	}
	if cfg.LineEndpoints {
		names := DefaultLineEndpointColumns
		if len(cfg.LineEndpointColumns) == 4 {
			names = cfg.LineEndpointColumns
		}
		cols := make([]schema.Column, len(names))
		for i, n := range names {
			cols[i] = col(n, schema.TypeFloat)
		}
		add(StageLineEndpoints, nil, cols...)
	}
	if cfg.AddressRanges {
		if err := perColumn(StageAddressRange, cfg.AddressRangeColumns, func(src string) []schema.Column {
			return []schema.Column{
				col(src+suffixAddressNumber, schema.TypeInt),
				col(src+suffixAddressUnit, schema.TypeString),
			}
		}); err != nil {
			return nil, err
		}
	}
	if cfg.EvenOdd {
		if err := perColumn(StageEvenOdd, cfg.EvenOddColumns, func(src string) []schema.Column {
			return []schema.Column{col(src+suffixEvenOdd, schema.TypeBool)}
		}); err != nil {
			return nil, err
		}
	}
	if cfg.Projection {
		add(StageProjection, nil, col(ColGeometryProjected, schema.TypeGeometry))
	}
	if cfg.Area {
		add(StageArea, nil, col(ColArea, schema.TypeFloat))
	}
	if cfg.Centroid {
		add(StageCentroid, nil, col(ColCentroidX, schema.TypeFloat), col(ColCentroidY, schema.TypeFloat))
	}
	if cfg.ImportTime {
		add(StageImportTime, nil, col(ColImportTime, schema.TypeDuration))
	}
	return slots, nil
}

func col(name string, t schema.Type) schema.Column {
	return schema.Column{Name: name, Type: t, ReadOnly: true}
}

func layoutOf(base schema.Schema, slots []slot) Layout {
	l := Layout{Base: len(base), Width: len(base)}
	cols := base.Clone()
	for _, s := range slots {
		l.Windows = append(l.Windows, s.Window)
		l.Width += s.Width
		cols = append(cols, s.columns...)
	}
	cols.Renumber()
	l.Columns = cols
	return l
}

// Compose returns the layout for cfg over the attribute columns base
// without building any row.
func Compose(cfg Config, base schema.Schema) (Layout, error) {
	slots, err := compile(cfg, base)
	if err != nil {
		return Layout{}, err
	}
	return layoutOf(base, slots), nil
}

// ComposeSchema returns the output columns for cfg: base followed by the
// columns of every enabled stage in stage order.
func ComposeSchema(cfg Config, base schema.Schema) (schema.Schema, error) {
	l, err := Compose(cfg, base)
	if err != nil {
		return nil, err
	}
	return l.Columns, nil
}
