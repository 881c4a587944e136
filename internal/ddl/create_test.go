package ddl_test

import (
	"strconv"
	"strings"
	"testing"

	"shpetl/internal/ddl"
	"shpetl/internal/enrich"
	"shpetl/internal/schema"
	mssqlddl "shpetl/internal/storage/mssql/ddl"
	mysqlddl "shpetl/internal/storage/mysql/ddl"
	pgddl "shpetl/internal/storage/postgres/ddl"
	sqliteddl "shpetl/internal/storage/sqlite/ddl"
)

// parcelSchema composes the output columns of a parcel import: two
// attribute columns followed by the geography, phonetic, area and
// import time stages.
func parcelSchema(tb testing.TB, base schema.Schema) schema.Schema {
	tb.Helper()
	cfg := enrich.DefaultConfig()
	cfg.Geography = true
	cfg.Soundex = true
	cfg.SoundexColumns = []string{"OWNER"}
	cfg.Area = true
	cfg.ImportTime = true
	cols, err := enrich.ComposeSchema(cfg, base)
	if err != nil {
		tb.Fatalf("ComposeSchema() error = %v", err)
	}
	return cols
}

func parcelBase() schema.Schema {
	return schema.Schema{
		{Name: "PARCEL_ID", Type: schema.TypeInt, Ordinal: 0},
		{Name: "OWNER", Type: schema.TypeString, Ordinal: 1},
	}
}

// TestBuildCreateTableSQL_Backends renders the composed parcel schema in
// every backend dialect. Each backend quotes identifiers its own way and
// either uses IF NOT EXISTS or wraps the statement in a guard.
func TestBuildCreateTableSQL_Backends(t *testing.T) {
	t.Parallel()

	cols := parcelSchema(t, parcelBase())

	tests := []struct {
		name    string
		dialect ddl.Dialect
		mapType ddl.TypeMapper
		wantSQL string
	}{
		{
			name:    "postgres",
			dialect: pgddl.Dialect,
			mapType: pgddl.MapType,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"gis\".\"parcels\" (\n" +
				"  \"PARCEL_ID\" BIGINT,\n" +
				"  \"OWNER\" TEXT,\n" +
				"  \"shapeType\" TEXT,\n" +
				"  \"shapeGeog\" BYTEA,\n" +
				"  \"OWNER_Soundex\" TEXT,\n" +
				"  \"shapeArea\" DOUBLE PRECISION,\n" +
				"  \"importTime\" DOUBLE PRECISION\n" +
				");",
		},
		{
			name:    "mssql",
			dialect: mssqlddl.Dialect,
			mapType: mssqlddl.MapType,
			wantSQL: "IF OBJECT_ID(N'[gis].[parcels]', N'U') IS NULL\nBEGIN\n" +
				"  CREATE TABLE [gis].[parcels] (\n" +
				"    [PARCEL_ID] BIGINT,\n" +
				"    [OWNER] NVARCHAR(MAX),\n" +
				"    [shapeType] NVARCHAR(MAX),\n" +
				"    [shapeGeog] VARBINARY(MAX),\n" +
				"    [OWNER_Soundex] NVARCHAR(MAX),\n" +
				"    [shapeArea] FLOAT,\n" +
				"    [importTime] FLOAT\n" +
				"  );\nEND;",
		},
		{
			name:    "sqlite",
			dialect: sqliteddl.Dialect,
			mapType: sqliteddl.MapType,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"gis\".\"parcels\" (\n" +
				"  \"PARCEL_ID\" INTEGER,\n" +
				"  \"OWNER\" TEXT,\n" +
				"  \"shapeType\" TEXT,\n" +
				"  \"shapeGeog\" BLOB,\n" +
				"  \"OWNER_Soundex\" TEXT,\n" +
				"  \"shapeArea\" REAL,\n" +
				"  \"importTime\" REAL\n" +
				");",
		},
		{
			name:    "mysql",
			dialect: mysqlddl.Dialect,
			mapType: mysqlddl.MapType,
			wantSQL: "CREATE TABLE IF NOT EXISTS `gis`.`parcels` (\n" +
				"  `PARCEL_ID` BIGINT,\n" +
				"  `OWNER` LONGTEXT,\n" +
				"  `shapeType` LONGTEXT,\n" +
				"  `shapeGeog` LONGBLOB,\n" +
				"  `OWNER_Soundex` LONGTEXT,\n" +
				"  `shapeArea` DOUBLE,\n" +
				"  `importTime` DOUBLE\n" +
				");",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def, err := ddl.FromSchema("gis.parcels", cols, tt.mapType)
			if err != nil {
				t.Fatalf("FromSchema() error = %v", err)
			}
			if len(def.Columns) != len(cols) {
				t.Fatalf("FromSchema() produced %d columns, want %d", len(def.Columns), len(cols))
			}
			for i, c := range def.Columns {
				if c.Name != cols[i].Name {
					t.Fatalf("column %d = %q, want %q", i, c.Name, cols[i].Name)
				}
				if !c.Nullable {
					t.Fatalf("column %q is NOT NULL; composed columns must accept NULL", c.Name)
				}
			}

			gotSQL, err := tt.dialect.BuildCreateTableSQL(def)
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

// TestBuildCreateTableSQL_QuoteEscaping checks that names carrying the
// quote character survive both identifier quoting and the SQL Server
// guard's string literal.
func TestBuildCreateTableSQL_QuoteEscaping(t *testing.T) {
	t.Parallel()

	def := ddl.TableDef{FQN: "o'neil]s", Columns: textColumn("a`b\"c")}

	tests := []struct {
		name    string
		dialect ddl.Dialect
		wantSQL string
	}{
		{
			name:    "mssql",
			dialect: mssqlddl.Dialect,
			wantSQL: "IF OBJECT_ID(N'[o''neil]]s]', N'U') IS NULL\nBEGIN\n" +
				"  CREATE TABLE [o'neil]]s] (\n    [a`b\"c] TEXT\n  );\nEND;",
		},
		{
			name:    "postgres",
			dialect: pgddl.Dialect,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"o'neil]s\" (\n  \"a`b\"\"c\" TEXT\n);",
		},
		{
			name:    "mysql",
			dialect: mysqlddl.Dialect,
			wantSQL: "CREATE TABLE IF NOT EXISTS `o'neil]s` (\n  `a``b\"c` TEXT\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSQL, err := tt.dialect.BuildCreateTableSQL(def)
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

func textColumn(name string) []ddl.ColumnDef {
	return []ddl.ColumnDef{{Name: name, SQLType: "TEXT", Nullable: true}}
}

// TestBuildCreateTableSQL covers the generic rendering rules and the
// errors surfaced for incomplete table definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		dialect     ddl.Dialect
		def         ddl.TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         ddl.TableDef{Columns: textColumn("OWNER")},
			errContains: "ddl: table FQN must not be empty",
		},
		{
			name:        "no columns returns error with dialect prefix",
			dialect:     pgddl.Dialect,
			def:         ddl.TableDef{FQN: "parcels"},
			errContains: "postgres ddl: at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         ddl.TableDef{FQN: "parcels", Columns: []ddl.ColumnDef{{Name: " ", SQLType: "TEXT"}}},
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			dialect:     mssqlddl.Dialect,
			def:         ddl.TableDef{FQN: "parcels", Columns: []ddl.ColumnDef{{Name: "shapeGeog"}}},
			errContains: "mssql ddl: column shapeGeog missing SQLType",
		},
		{
			name: "unquoted dialect emits names as given",
			def: ddl.TableDef{FQN: "  gis.parcels  ", Columns: []ddl.ColumnDef{
				{Name: " PARCEL_ID ", SQLType: " BIGINT ", Nullable: false},
				{Name: "shapeGeog", SQLType: "BLOB", Nullable: true},
			}},
			wantSQL: "CREATE TABLE gis.parcels (\n  PARCEL_ID BIGINT NOT NULL,\n  shapeGeog BLOB\n);",
		},
		{
			name:    "postgres sorts primary key and forces NOT NULL",
			dialect: pgddl.Dialect,
			def: ddl.TableDef{FQN: "parcels", Columns: []ddl.ColumnDef{
				{Name: "PARCEL_ID", SQLType: "BIGINT", Nullable: true, PrimaryKey: true},
				{Name: "COUNTY", SQLType: "TEXT", Nullable: true, PrimaryKey: true},
			}},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"parcels\" (\n" +
				"  \"PARCEL_ID\" BIGINT NOT NULL,\n  \"COUNTY\" TEXT NOT NULL,\n" +
				"  PRIMARY KEY (\"COUNTY\", \"PARCEL_ID\")\n);",
		},
		{
			name:    "sqlite keeps primary key order and nullability",
			dialect: sqliteddl.Dialect,
			def: ddl.TableDef{FQN: "parcels", Columns: []ddl.ColumnDef{
				{Name: "PARCEL_ID", SQLType: "INTEGER", Nullable: true, PrimaryKey: true},
				{Name: "COUNTY", SQLType: "TEXT", Nullable: true, PrimaryKey: true},
			}},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"parcels\" (\n" +
				"  \"PARCEL_ID\" INTEGER,\n  \"COUNTY\" TEXT,\n" +
				"  PRIMARY KEY (\"PARCEL_ID\", \"COUNTY\")\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSQL, err := tt.dialect.BuildCreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil {
					t.Fatalf("BuildCreateTableSQL() error = nil, want %q", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %q, want substring %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

var benchmarkSink string

// BenchmarkBuildCreateTableSQL_Parcels renders the small parcel schema.
func BenchmarkBuildCreateTableSQL_Parcels(b *testing.B) {
	def, err := ddl.FromSchema("gis.parcels", parcelSchema(b, parcelBase()), pgddl.MapType)
	if err != nil {
		b.Fatalf("FromSchema() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := pgddl.Dialect.BuildCreateTableSQL(def)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}

// BenchmarkBuildCreateTableSQL_WideTable renders a county layer with 64
// attribute columns behind the stage columns, including the guard.
func BenchmarkBuildCreateTableSQL_WideTable(b *testing.B) {
	base := make(schema.Schema, 0, 64)
	base = append(base, parcelBase()...)
	for i := len(base); i < 64; i++ {
		base = append(base, schema.Column{Name: "ATTR_" + strconv.Itoa(i), Type: schema.TypeString, Ordinal: i})
	}
	def, err := ddl.FromSchema("gis.county_parcels", parcelSchema(b, base), mssqlddl.MapType)
	if err != nil {
		b.Fatalf("FromSchema() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := mssqlddl.Dialect.BuildCreateTableSQL(def)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}
