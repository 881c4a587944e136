package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shpetl/internal/schema"
)

func baseSchema() schema.Schema {
	s := schema.Schema{
		{Name: "NAME", Type: schema.TypeString},
		{Name: "ADDR", Type: schema.TypeString},
		{Name: "HOUSE", Type: schema.TypeInt},
	}
	s.Renumber()
	return s
}

func allStages() Config {
	cfg := DefaultConfig()
	cfg.Geography = true
	cfg.GeographyGeoJSON = true
	cfg.Geometry = true
	cfg.GeometryGeoJSON = true
	cfg.Soundex = true
	cfg.SoundexColumns = []string{"NAME", "ADDR"}
	cfg.SoundexDM = true
	cfg.SoundexDMColumns = []string{"NAME"}
	cfg.LineEndpoints = true
	cfg.AddressRanges = true
	cfg.AddressRangeColumns = []string{"ADDR"}
	cfg.EvenOdd = true
	cfg.EvenOddColumns = []string{"HOUSE"}
	cfg.Projection = true
	cfg.Area = true
	cfg.Centroid = true
	cfg.ImportTime = true
	return cfg
}

func TestComposeSchemaWidth(t *testing.T) {
	base := baseSchema()
	cases := []struct {
		name  string
		cfg   func() Config
		extra int
	}{
		{"defaults", DefaultConfig, 1},
		{"spatial", func() Config {
			c := DefaultConfig()
			c.Geography, c.Geometry, c.Projection = true, true, true
			return c
		}, 4},
		{"per column", func() Config {
			c := DefaultConfig()
			c.Soundex, c.SoundexColumns = true, []string{"NAME", "ADDR"}
			c.AddressRanges, c.AddressRangeColumns = true, []string{"ADDR"}
			return c
		}, 1 + 2 + 2},
		{"flag without columns", func() Config {
			c := DefaultConfig()
			c.Soundex = true
			return c
		}, 1},
		{"columns without flag", func() Config {
			c := DefaultConfig()
			c.EvenOddColumns = []string{"HOUSE"}
			return c
		}, 1},
		{"everything", allStages, 1 + 1 + 1 + 1 + 1 + 2 + 1 + 4 + 2 + 1 + 1 + 1 + 2 + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ComposeSchema(tc.cfg(), base)
			require.NoError(t, err)
			assert.Len(t, s, len(base)+tc.extra)
			for i, c := range s {
				assert.Equal(t, i, c.Ordinal)
				assert.Equal(t, i >= len(base), c.ReadOnly, c.Name)
			}
		})
	}
}

func TestComposeSchemaNamesInStageOrder(t *testing.T) {
	s, err := ComposeSchema(allStages(), baseSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NAME", "ADDR", "HOUSE",
		"shapeType", "shapeGeog", "shapeGeogAsGeoJSON", "shapeGeom", "shapeGeomAsGeoJSON",
		"NAME_Soundex", "ADDR_Soundex", "NAME_SoundexDM",
		"FromLongitude", "FromLatitude", "ToLongitude", "ToLatitude",
		"ADDR_Number", "ADDR_Unit", "HOUSE_Even",
		"shapeGeomProjected", "shapeArea", "CentroidX", "CentroidY", "importTime",
	}, s.Names())

	idx := s.Index("shapeGeog")
	assert.Equal(t, schema.TypeGeography, s[idx].Type)
	assert.Equal(t, schema.TypeInt, s[s.Index("ADDR_Number")].Type)
	assert.Equal(t, schema.TypeBool, s[s.Index("HOUSE_Even")].Type)
	assert.Equal(t, schema.TypeDuration, s[s.Index("importTime")].Type)
}

func TestComposeSchemaCustomEndpointNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LineEndpoints = true
	cfg.LineEndpointColumns = []string{"x1", "y1", "x2", "y2"}
	s, err := ComposeSchema(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"shapeType", "x1", "y1", "x2", "y2"}, s.Names())
}

func TestComposeSchemaUnknownColumn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SoundexDM = true
	cfg.SoundexDMColumns = []string{"MISSING"}
	_, err := ComposeSchema(cfg, baseSchema())
	assert.ErrorContains(t, err, `unknown source column "MISSING"`)
}

func TestComposeSchemaResolvesCaseInsensitively(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Soundex = true
	cfg.SoundexColumns = []string{"name"}
	s, err := ComposeSchema(cfg, baseSchema())
	require.NoError(t, err)
	assert.Equal(t, "NAME_Soundex", s[len(s)-1].Name)
}

func TestLayoutWindows(t *testing.T) {
	l, err := Compose(allStages(), baseSchema())
	require.NoError(t, err)
	assert.Equal(t, 3, l.Base)
	assert.Equal(t, len(l.Columns), l.Width)

	next := l.Base
	for _, w := range l.Windows {
		assert.Equal(t, next, w.Offset, w.Stage.String())
		next += w.Width
	}
	assert.Equal(t, l.Width, next)

	w, ok := l.Window(StageAddressRange)
	require.True(t, ok)
	assert.Equal(t, 2, w.Width)

	l, err = Compose(DefaultConfig(), nil)
	require.NoError(t, err)
	_, ok = l.Window(StageGeography)
	assert.False(t, ok)
	assert.Equal(t, 1, l.Width)
}
