package enrich

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shpetl/internal/geo"
	"shpetl/internal/schema"
	"shpetl/internal/shape"
)

func ring(x0, y0, x1, y1 float64) shape.Part {
	return shape.Part{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}
}

func threePartPolygon() *shape.Record {
	return &shape.Record{
		Index: 1,
		Kind:  shape.KindPolygon,
		Parts: []shape.Part{ring(0, 0, 1, 1), ring(0.5, 0.5, 2, 2), ring(5, 5, 6, 6)},
	}
}

func attrs() []any { return []any{"Robert", "123-A", int64(4)} }

// failingEngine fails part construction for every record.
type failingEngine struct {
	geo.OrbEngine
	calls int
}

func (f *failingEngine) BuildPart(shape.Kind, shape.Part) (geo.Part, error) {
	f.calls++
	return geo.Part{}, errors.New("boom")
}

func TestApplyAllStagesDisabled(t *testing.T) {
	p, err := New(DefaultConfig(), baseSchema(), Deps{})
	require.NoError(t, err)

	row, err := p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	assert.Equal(t, append(attrs(), "Polygon"), row)
}

func TestApplyRowMatchesSchema(t *testing.T) {
	p, err := New(allStages(), baseSchema(), Deps{})
	require.NoError(t, err)

	row, err := p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	cols := p.Schema()
	require.Len(t, row, len(cols))

	for i, c := range cols {
		v := row[i]
		if v == nil {
			continue
		}
		switch c.Type {
		case schema.TypeString:
			assert.IsType(t, "", v, c.Name)
		case schema.TypeGeography:
			assert.IsType(t, geo.Geography{}, v, c.Name)
		case schema.TypeGeometry:
			assert.IsType(t, geo.Geometry{}, v, c.Name)
		case schema.TypeFloat, schema.TypeDuration:
			assert.IsType(t, 0.0, v, c.Name)
		case schema.TypeBool:
			assert.IsType(t, true, v, c.Name)
		case schema.TypeInt:
			assert.IsType(t, int64(0), v, c.Name)
		}
	}
}

func TestGeographyIsUnionOfParts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geography = true
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	rec := threePartPolygon()
	row, err := p.Apply(rec, attrs())
	require.NoError(t, err)
	require.Len(t, row, 5)

	var eng geo.OrbEngine
	var want geo.Geography
	for i, pts := range rec.Parts {
		part, err := eng.BuildPart(rec.Kind, pts)
		require.NoError(t, err)
		g, err := eng.ToGeography(part, geo.DefaultSRID)
		require.NoError(t, err)
		if i == 0 {
			want = g
			continue
		}
		want, err = eng.UnionGeography(want, g)
		require.NoError(t, err)
	}

	got, ok := row[4].(geo.Geography)
	require.True(t, ok, "got %T", row[4])
	assert.Equal(t, want, got)
	assert.Equal(t, geo.DefaultSRID, got.SRID)
	mp, ok := got.G.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestPerColumnStages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Soundex = true
	cfg.SoundexColumns = []string{"NAME", "ADDR"}
	cfg.AddressRanges = true
	cfg.AddressRangeColumns = []string{"ADDR"}
	cfg.EvenOdd = true
	cfg.EvenOddColumns = []string{"HOUSE"}
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	cases := []struct {
		name  string
		attrs []any
		want  []any
	}{
		{"values", []any{"Robert", "123-A", int64(4)}, []any{"R163", "A000", int64(123), "A", true}},
		{"odd", []any{"Rupert", "A-1", int64(3)}, []any{"R163", "A000", nil, "1", false}},
		{"nulls", []any{nil, nil, nil}, []any{"", "", nil, "", nil}},
		{"zero", []any{"Lee", "", int64(0)}, []any{"L000", "", nil, "", nil}},
		{"negative", []any{"Lee", "7", int64(-2)}, []any{"L000", "", int64(7), "", nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row, err := p.Apply(&shape.Record{Index: 1, Kind: shape.KindPoint}, tc.attrs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, row[4:])
		})
	}
}

func TestEvenOddStrictParity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvenOdd = true
	cfg.EvenOddColumns = []string{"HOUSE"}
	cfg.EvenOddStrictParity = true
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	for in, want := range map[int64]bool{0: true, -3: false, -4: true, 9: false} {
		row, err := p.Apply(&shape.Record{Index: 1}, []any{"", "", in})
		require.NoError(t, err)
		assert.Equal(t, want, row[4], "value %d", in)
	}
}

func TestLineEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LineEndpoints = true
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	line := &shape.Record{Index: 1, Kind: shape.KindPolyLine, Parts: []shape.Part{
		{{X: -90, Y: 30}, {X: -89, Y: 31}},
		{{X: -88, Y: 32}, {X: -87, Y: 33}},
	}}
	row, err := p.Apply(line, attrs())
	require.NoError(t, err)
	assert.Equal(t, []any{-90.0, 30.0, -87.0, 33.0}, row[4:])

	row, err = p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	assert.Equal(t, []any{0.0, 0.0, 0.0, 0.0}, row[4:])
}

func TestAlternateRepresentation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GeographyGeoJSON = true
	cfg.GeometryGeoJSON = true
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	row, err := p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	geog, geom := row[4].(string), row[5].(string)
	assert.Contains(t, geog, `"type":"MultiPolygon"`)
	assert.Equal(t, geog, geom)

	cfg.MaxAlternateParts = 3
	p, err = New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)
	row, err = p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	assert.Equal(t, []any{"", ""}, row[4:])
}

func TestSpatialMeasures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Projection = true
	cfg.Area = true
	cfg.Centroid = true
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	rec := &shape.Record{Index: 1, Kind: shape.KindPolygon, Parts: []shape.Part{ring(-97, 39, -95, 41)}}
	row, err := p.Apply(rec, attrs())
	require.NoError(t, err)

	proj, ok := row[4].(geo.Geometry)
	require.True(t, ok, "got %T", row[4])
	assert.False(t, proj.IsEmpty())
	assert.Greater(t, row[5].(float64), 0.0)
	assert.InDelta(t, -96.0, row[6].(float64), 1e-9)
	assert.InDelta(t, 40.0, row[7].(float64), 1e-9)

	// no parts: nothing to measure
	row, err = p.Apply(&shape.Record{Index: 2, Kind: shape.KindPolygon}, attrs())
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 0.0, 0.0, 0.0}, row[4:])
}

func TestImportTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImportTime = true
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	now := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 1500 * time.Microsecond)
	}
	p, err := New(cfg, baseSchema(), Deps{Now: now})
	require.NoError(t, err)

	row, err := p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	assert.InDelta(t, 1.5, row[4].(float64), 1e-9)
}

func TestAbortPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geography = true
	cfg.Policy = PolicyAbort
	p, err := New(cfg, baseSchema(), Deps{Engine: &failingEngine{}})
	require.NoError(t, err)

	rec := threePartPolygon()
	rec.Index = 17
	_, err = p.Apply(rec, attrs())
	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageGeography, serr.Stage)
	assert.Equal(t, 17, serr.Record)
	assert.ErrorContains(t, err, "geography")
	assert.ErrorContains(t, err, "record 17")
}

func TestTolerantPolicyKeepsWidth(t *testing.T) {
	cfg := allStages()
	cfg.Policy = PolicyTolerant
	eng := &failingEngine{}
	var absorbed []Stage
	p, err := New(cfg, baseSchema(), Deps{
		Engine:       eng,
		OnStageError: func(e *StageError) { absorbed = append(absorbed, e.Stage) },
	})
	require.NoError(t, err)

	row, err := p.Apply(threePartPolygon(), attrs())
	require.NoError(t, err)
	require.Len(t, row, len(p.Schema()))
	assert.Equal(t, 1, eng.calls, "part construction is memoized per row")

	assert.Equal(t, []Stage{StageGeography, StageGeographyGeoJSON, StageGeometry, StageGeometryGeoJSON}, absorbed)

	s := p.Schema()
	assert.Nil(t, row[s.Index("shapeGeog")])
	assert.Equal(t, "", row[s.Index("shapeGeogAsGeoJSON")])
	assert.Nil(t, row[s.Index("shapeGeomProjected")])
	assert.Equal(t, 0.0, row[s.Index("shapeArea")])
	assert.Equal(t, "R163", row[s.Index("NAME_Soundex")])
}

func TestParseErrorRecordHasNoGeometry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geography = true
	cfg.Policy = PolicyTolerant
	var got *StageError
	p, err := New(cfg, baseSchema(), Deps{OnStageError: func(e *StageError) { got = e }})
	require.NoError(t, err)

	row, err := p.Apply(&shape.Record{Index: 3, Kind: shape.KindPolygon, Err: "truncated record"}, attrs())
	require.NoError(t, err)
	assert.Nil(t, row[4])
	require.NotNil(t, got)
	assert.ErrorContains(t, got, "truncated record")
}

func TestTrimStrings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrimStrings = true
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	row, err := p.Apply(&shape.Record{Index: 1, Kind: shape.KindPoint}, []any{"  Main St ", "", int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Main St", row[0])
	assert.Equal(t, "Point", row[3])
}

func TestApplyRejectsMisalignedAttributes(t *testing.T) {
	p, err := New(DefaultConfig(), baseSchema(), Deps{})
	require.NoError(t, err)
	_, err = p.Apply(&shape.Record{Index: 1}, []any{"only one"})
	assert.Error(t, err)
}

func TestConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Soundex = true
	cfg.SoundexColumns = []string{"NAME"}
	p, err := New(cfg, baseSchema(), Deps{})
	require.NoError(t, err)

	cfg.SoundexColumns[0] = "ADDR"
	cfg.Geography = true
	assert.Equal(t, "NAME_Soundex", p.Schema()[4].Name)
	assert.Len(t, p.Schema(), 5)
}

// envelopeFailEngine has no envelope for any geography and counts the
// projections it is asked for.
type envelopeFailEngine struct {
	geo.OrbEngine
	projects int
}

func (e *envelopeFailEngine) EnvelopeCenter(geo.Geography) (orb.Point, error) {
	return orb.Point{}, geo.ErrEmpty
}

func (e *envelopeFailEngine) Project(g geo.Geography, p geo.Projector) (geo.Geometry, error) {
	e.projects++
	return e.OrbEngine.Project(g, p)
}

func TestProjectionSkipsGeographyWithoutEnvelope(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Projection = true
	eng := &envelopeFailEngine{}
	p, err := New(cfg, baseSchema(), Deps{Engine: eng})
	require.NoError(t, err)

	rec := &shape.Record{Index: 1, Kind: shape.KindPolygon, Parts: []shape.Part{ring(-97, 39, -95, 41)}}
	row, err := p.Apply(rec, attrs())
	require.NoError(t, err)
	assert.Nil(t, row[4])
	assert.Zero(t, eng.projects)
}
