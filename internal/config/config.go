// Package config defines the configuration model of a shpetl run: which
// shapefile to read, which enrichment stages to enable, where the enriched
// rows go, and the ambient settings (runtime, metrics, logging).
//
// A pipeline file is JSON or YAML. Every key can be overridden from the
// environment with the SHPETL_ prefix, dots replaced by underscores:
//
//	SHPETL_STORAGE_DB_DSN=postgres://... shpetl -config configs/parcels.yaml
//
// Example (trimmed):
//
//	job: parcels
//	source:
//	  path: data/parcels.shp
//	enrich:
//	  geography: true
//	  soundex: { enabled: true, columns: [OWNER] }
//	  policy: tolerant
//	storage:
//	  kind: postgres
//	  db: { dsn: "postgres://...", table: public.parcels, auto_create_table: true }
package config

import (
	"shpetl/internal/enrich"
	"shpetl/internal/geo"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" mapstructure:"job" validate:"required"`

	Source  Source        `json:"source" mapstructure:"source"`
	Enrich  Enrich        `json:"enrich" mapstructure:"enrich"`
	Storage Storage       `json:"storage" mapstructure:"storage"`
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
	Metrics Metrics       `json:"metrics" mapstructure:"metrics"`
	Logging Logging       `json:"logging" mapstructure:"logging"`
}

// Source locates the shapefile. Path names the .shp file with or without
// its extension; the .shx and .dbf companions must sit next to it.
type Source struct {
	Path       string     `json:"path" mapstructure:"path" validate:"required"`
	Attributes Attributes `json:"attributes" mapstructure:"attributes"`
}

// Attributes controls how the .dbf attribute table is read.
type Attributes struct {
	// Materialize copies the attribute table into a temporary SQLite file
	// before iteration and reads it back in row order.
	Materialize bool `json:"materialize" mapstructure:"materialize"`

	// TempDir is where the materialized copy is written; empty means
	// os.TempDir.
	TempDir string `json:"temp_dir" mapstructure:"temp_dir"`
}

// ColumnStage enables a per-column enrichment stage and names its source
// columns.
type ColumnStage struct {
	Enabled bool     `json:"enabled" mapstructure:"enabled"`
	Columns []string `json:"columns" mapstructure:"columns"`
}

// Enrich mirrors enrich.Config in file form.
type Enrich struct {
	Geography        bool `json:"geography" mapstructure:"geography"`
	GeographyGeoJSON bool `json:"geography_geojson" mapstructure:"geography_geojson"`
	Geometry         bool `json:"geometry" mapstructure:"geometry"`
	GeometryGeoJSON  bool `json:"geometry_geojson" mapstructure:"geometry_geojson"`

	Soundex   ColumnStage `json:"soundex" mapstructure:"soundex"`
	SoundexDM ColumnStage `json:"soundex_dm" mapstructure:"soundex_dm"`

	// SoundexDMBranching emits every Daitch-Mokotoff branch joined by "|"
	// instead of the primary code only.
	SoundexDMBranching bool `json:"soundex_dm_branching" mapstructure:"soundex_dm_branching"`

	// LineEndpoints.Columns, when set, renames the four endpoint columns.
	LineEndpoints ColumnStage `json:"line_endpoints" mapstructure:"line_endpoints"`
	AddressRanges ColumnStage `json:"address_ranges" mapstructure:"address_ranges"`
	EvenOdd       ColumnStage `json:"even_odd" mapstructure:"even_odd"`

	EvenOddStrictParity bool `json:"even_odd_strict_parity" mapstructure:"even_odd_strict_parity"`

	Projection  bool `json:"projection" mapstructure:"projection"`
	Area        bool `json:"area" mapstructure:"area"`
	Centroid    bool `json:"centroid" mapstructure:"centroid"`
	ImportTime  bool `json:"import_time" mapstructure:"import_time"`
	TrimStrings bool `json:"trim_strings" mapstructure:"trim_strings"`

	SRID              int    `json:"srid" mapstructure:"srid" validate:"gte=0"`
	MaxAlternateParts int    `json:"max_alternate_parts" mapstructure:"max_alternate_parts" validate:"gte=0"`
	Policy            string `json:"policy" mapstructure:"policy" validate:"omitempty,oneof=abort tolerant"`
}

// Storage selects the sink for enriched rows.
type Storage struct {
	// Kind selects the backend: postgres, mssql, mysql or sqlite.
	Kind string   `json:"kind" mapstructure:"kind" validate:"required"`
	DB   DBConfig `json:"db" mapstructure:"db"`
}

// DBConfig configures the DB sink. The destination columns are the
// composed schema of the reader, so they are not listed here.
type DBConfig struct {
	DSN   string `json:"dsn" mapstructure:"dsn" validate:"required"`
	Table string `json:"table" mapstructure:"table" validate:"required"`

	// AutoCreateTable creates the table from the composed schema when it
	// does not exist.
	AutoCreateTable bool `json:"auto_create_table" mapstructure:"auto_create_table"`

	// DedupeKeyColumns drops rows whose key cells were already loaded in
	// this run. Empty disables deduplication.
	DedupeKeyColumns []string `json:"dedupe_key_columns" mapstructure:"dedupe_key_columns"`
}

// RuntimeConfig controls batching and buffering between the reader and
// the loader.
type RuntimeConfig struct {
	BatchSize     int `json:"batch_size" mapstructure:"batch_size"`
	ChannelBuffer int `json:"channel_buffer" mapstructure:"channel_buffer"`

	// NotifyAfter is the progress callback interval in records; 0 reports
	// every record.
	NotifyAfter int `json:"notify_after" mapstructure:"notify_after"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "", "none", "prometheus" or "datadog".
	Backend        string  `json:"backend" mapstructure:"backend" validate:"omitempty,oneof=none prometheus datadog"`
	PushgatewayURL string  `json:"pushgateway_url" mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Datadog        Datadog `json:"datadog" mapstructure:"datadog"`
}

// Datadog configures the DogStatsD client.
type Datadog struct {
	Addr      string   `json:"addr" mapstructure:"addr"`
	Namespace string   `json:"namespace" mapstructure:"namespace"`
	Tags      []string `json:"tags" mapstructure:"tags"`
}

// Logging configures the global zerolog logger.
type Logging struct {
	Level  string `json:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `json:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// Defaults applied by Load before the file is read.
const (
	DefaultBatchSize     = 5000
	DefaultChannelBuffer = 1024
	DefaultNotifyAfter   = 1000
)

// EnrichConfig converts the file form into an enrich.Config. Unknown
// policy strings fall back to abort; ValidatePipeline reports them.
func (p Pipeline) EnrichConfig() enrich.Config {
	e := p.Enrich
	cfg := enrich.Config{
		Geography:        e.Geography,
		GeographyGeoJSON: e.GeographyGeoJSON,
		Geometry:         e.Geometry,
		GeometryGeoJSON:  e.GeometryGeoJSON,

		Soundex:          e.Soundex.Enabled,
		SoundexColumns:   e.Soundex.Columns,
		SoundexDM:        e.SoundexDM.Enabled,
		SoundexDMColumns: e.SoundexDM.Columns,

		LineEndpoints:       e.LineEndpoints.Enabled,
		LineEndpointColumns: e.LineEndpoints.Columns,
		AddressRanges:       e.AddressRanges.Enabled,
		AddressRangeColumns: e.AddressRanges.Columns,
		EvenOdd:             e.EvenOdd.Enabled,
		EvenOddColumns:      e.EvenOdd.Columns,
		EvenOddStrictParity: e.EvenOddStrictParity,

		Projection:  e.Projection,
		Area:        e.Area,
		Centroid:    e.Centroid,
		ImportTime:  e.ImportTime,
		TrimStrings: e.TrimStrings,

		SRID:              e.SRID,
		MaxAlternateParts: e.MaxAlternateParts,
	}
	if cfg.SRID == 0 {
		cfg.SRID = geo.DefaultSRID
	}
	cfg.Policy, _ = enrich.ParsePolicy(e.Policy)
	return cfg.Clone()
}
