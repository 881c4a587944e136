// Package enrich turns a shapefile record and its attribute row into an
// output row. A fixed, ordered list of stages appends derived cells
// (shape tag, spatial values, phonetic codes, address parts, projection,
// area, centroid, timing) after the attribute columns.
//
// The stage list is compiled once per reader into a Layout: every enabled
// stage owns a fixed window of cells, so the row width and the composed
// schema stay aligned whatever the per-row outcome.
package enrich

import "shpetl/internal/geo"

// Policy selects what happens when a stage fails on a record.
type Policy int

const (
	// PolicyAbort stops the reader with a *StageError.
	PolicyAbort Policy = iota
	// PolicyTolerant writes the stage's default cells and continues.
	PolicyTolerant
)

func (p Policy) String() string {
	if p == PolicyTolerant {
		return "tolerant"
	}
	return "abort"
}

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "abort":
		return PolicyAbort, true
	case "tolerant":
		return PolicyTolerant, true
	}
	return PolicyAbort, false
}

// DefaultMaxAlternateParts is the part count at which GeoJSON output is
// skipped; shapes that large are usually broken or continental.
const DefaultMaxAlternateParts = 25

// Config enables stages and names the source columns of the per-column
// stages. The reader copies it at construction; later changes have no
// effect.
type Config struct {
	Geography        bool
	GeographyGeoJSON bool
	Geometry         bool
	GeometryGeoJSON  bool

	Soundex          bool
	SoundexColumns   []string
	SoundexDM        bool
	SoundexDMColumns []string

	// LineEndpoints appends four cells. LineEndpointColumns names them;
	// with anything other than four names the defaults are used.
	LineEndpoints       bool
	LineEndpointColumns []string

	AddressRanges       bool
	AddressRangeColumns []string

	EvenOdd        bool
	EvenOddColumns []string
	// EvenOddStrictParity flags zero and negative values too. Off keeps
	// the historical behavior of leaving them unset.
	EvenOddStrictParity bool

	Projection bool
	Area       bool
	Centroid   bool
	ImportTime bool

	// TrimStrings trims surrounding whitespace from string attribute cells
	// before any stage reads them.
	TrimStrings bool

	// SRID tags geography and geometry values; 0 means geo.DefaultSRID.
	SRID int
	// MaxAlternateParts skips GeoJSON output for shapes with at least this
	// many parts. 0 disables the limit.
	MaxAlternateParts int

	Policy Policy
}

// DefaultConfig returns a configuration with only the shape tag enabled.
func DefaultConfig() Config {
	return Config{
		SRID:              geo.DefaultSRID,
		MaxAlternateParts: DefaultMaxAlternateParts,
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.SoundexColumns = cloneStrings(c.SoundexColumns)
	out.SoundexDMColumns = cloneStrings(c.SoundexDMColumns)
	out.LineEndpointColumns = cloneStrings(c.LineEndpointColumns)
	out.AddressRangeColumns = cloneStrings(c.AddressRangeColumns)
	out.EvenOddColumns = cloneStrings(c.EvenOddColumns)
	return out
}

func (c Config) srid() int {
	if c.SRID == 0 {
		return geo.DefaultSRID
	}
	return c.SRID
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
