package enrich

import (
	"fmt"
	"strings"
	"time"

	"shpetl/internal/geo"
	"shpetl/internal/phonetic"
	"shpetl/internal/schema"
	"shpetl/internal/shape"
)

// Deps are the collaborators of a Pipeline. Nil fields get defaults:
// geo.OrbEngine, phonetic.Soundex, phonetic.DaitchMokotoff, geo.USAlbers
// and time.Now.
type Deps struct {
	Engine    geo.Engine
	Soundex   phonetic.Encoder
	SoundexDM phonetic.Encoder
	Projector geo.Projector
	Now       func() time.Time

	// OnStageError receives the failures absorbed under PolicyTolerant.
	OnStageError func(*StageError)
}

// Pipeline applies the enabled stages to one record at a time. It keeps no
// per-record state between calls.
type Pipeline struct {
	cfg    Config
	layout Layout
	slots  []slot
	deps   Deps
}

// New compiles cfg against the attribute columns base. Source columns that
// base does not contain are reported here rather than on the first row.
func New(cfg Config, base schema.Schema, deps Deps) (*Pipeline, error) {
	cfg = cfg.Clone()
	slots, err := compile(cfg, base)
	if err != nil {
		return nil, err
	}
	if deps.Engine == nil {
		deps.Engine = geo.OrbEngine{}
	}
	if deps.Soundex == nil {
		deps.Soundex = phonetic.Soundex{}
	}
	if deps.SoundexDM == nil {
		deps.SoundexDM = phonetic.DaitchMokotoff{}
	}
	if deps.Projector == nil {
		deps.Projector = geo.USAlbers()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, layout: layoutOf(base, slots), slots: slots, deps: deps}, nil
}

// Layout returns the compiled row layout.
func (p *Pipeline) Layout() Layout { return p.layout }

// Schema returns the output columns.
func (p *Pipeline) Schema() schema.Schema { return p.layout.Columns.Clone() }

// Apply builds the output row for rec and its attribute row attrs. The
// returned slice is newly allocated and belongs to the caller. Under
// PolicyAbort the first stage failure is returned as a *StageError.
func (p *Pipeline) Apply(rec *shape.Record, attrs []any) ([]any, error) {
	if rec == nil {
		return nil, fmt.Errorf("enrich: nil shape record")
	}
	if len(attrs) != p.layout.Base {
		return nil, fmt.Errorf("enrich: record %d has %d attribute values, want %d", rec.Index, len(attrs), p.layout.Base)
	}

	row := make([]any, p.layout.Width)
	copy(row, attrs)
	if p.cfg.TrimStrings {
		for i := 0; i < p.layout.Base; i++ {
			if s, ok := row[i].(string); ok {
				row[i] = strings.TrimSpace(s)
			}
		}
	}

	st := &rowState{p: p, rec: rec, row: row}
	start := p.deps.Now()
	for _, s := range p.slots {
		if s.Stage == StageImportTime {
			row[s.Offset] = float64(p.deps.Now().Sub(start)) / float64(time.Millisecond)
			continue
		}
		cells := row[s.Offset : s.Offset+s.Width]
		if err := p.run(st, s, cells); err != nil {
			serr := &StageError{Stage: s.Stage, Record: rec.Index, Err: err}
			if p.cfg.Policy == PolicyAbort {
				return nil, serr
			}
			fillDefaults(s, cells)
			if p.deps.OnStageError != nil {
				p.deps.OnStageError(serr)
			}
		}
	}
	return row, nil
}

// rowState memoizes the spatial values of one record so that stages
// sharing them build them once. A value is built on first use, also when
// the stage that normally produces it is disabled.
type rowState struct {
	p   *Pipeline
	rec *shape.Record
	row []any

	parts     []geo.Part
	partsErr  error
	partsDone bool

	geogParts []geo.Geography
	geog      *geo.Geography
	geogErr   error
	geogDone  bool

	geomParts []geo.Geometry
	geom      *geo.Geometry
	geomErr   error
	geomDone  bool
}

// buildParts returns nil without error for records with no parts.
func (st *rowState) buildParts() ([]geo.Part, error) {
	if st.partsDone {
		return st.parts, st.partsErr
	}
	st.partsDone = true
	if st.rec.Err != "" {
		st.partsErr = fmt.Errorf("shape parse error: %s", st.rec.Err)
		return nil, st.partsErr
	}
	for i, pts := range st.rec.Parts {
		part, err := st.p.deps.Engine.BuildPart(st.rec.Kind, pts)
		if err != nil {
			st.partsErr = fmt.Errorf("part %d: %w", i, err)
			st.parts = nil
			return nil, st.partsErr
		}
		st.parts = append(st.parts, part)
	}
	return st.parts, nil
}

// geography returns the left-to-right union of the per-part geographies,
// or nil when the record has no parts.
func (st *rowState) geography() (*geo.Geography, error) {
	if st.geogDone {
		return st.geog, st.geogErr
	}
	st.geogDone = true
	parts, err := st.buildParts()
	if err != nil {
		st.geogErr = err
		return nil, err
	}
	eng, srid := st.p.deps.Engine, st.p.cfg.srid()
	for i, part := range parts {
		g, err := eng.ToGeography(part, srid)
		if err != nil {
			st.geogErr = fmt.Errorf("part %d: %w", i, err)
			return nil, st.geogErr
		}
		st.geogParts = append(st.geogParts, g)
	}
	st.geog, st.geogErr = unionAll(st.geogParts, eng.UnionGeography)
	return st.geog, st.geogErr
}

// geometry mirrors geography in planar space.
func (st *rowState) geometry() (*geo.Geometry, error) {
	if st.geomDone {
		return st.geom, st.geomErr
	}
	st.geomDone = true
	parts, err := st.buildParts()
	if err != nil {
		st.geomErr = err
		return nil, err
	}
	eng, srid := st.p.deps.Engine, st.p.cfg.srid()
	for i, part := range parts {
		g, err := eng.ToGeometry(part, srid)
		if err != nil {
			st.geomErr = fmt.Errorf("part %d: %w", i, err)
			return nil, st.geomErr
		}
		st.geomParts = append(st.geomParts, g)
	}
	st.geom, st.geomErr = unionAll(st.geomParts, eng.UnionGeometry)
	return st.geom, st.geomErr
}

// unionAll folds parts left to right with the first part as the seed.
func unionAll[T any](parts []T, union func(a, b T) (T, error)) (*T, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	acc := parts[0]
	for i := 1; i < len(parts); i++ {
		next, err := union(acc, parts[i])
		if err != nil {
			return nil, fmt.Errorf("union part %d: %w", i, err)
		}
		acc = next
	}
	return &acc, nil
}
