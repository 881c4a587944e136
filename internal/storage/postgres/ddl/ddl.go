// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import (
	"context"
	"strings"

	gddl "shpetl/internal/ddl"
	"shpetl/internal/schema"
	"shpetl/internal/storage"
)

// Dialect renders CREATE TABLE IF NOT EXISTS with double-quoted identifiers.
// Primary key columns are always NOT NULL and listed alphabetically.
var Dialect = gddl.Dialect{
	Name:              "postgres",
	Quote:             quoteIdent,
	IfNotExists:       true,
	SortPrimaryKey:    true,
	PrimaryKeyNotNull: true,
}

// MapType maps a column type to a Postgres SQL type.
//
//	string               -> TEXT
//	int                  -> BIGINT
//	float, duration      -> DOUBLE PRECISION (durations in seconds)
//	bool                 -> BOOLEAN
//	date                 -> DATE
//	geometry, geography  -> BYTEA (EWKB)
func MapType(t schema.Type) string {
	switch t {
	case schema.TypeString:
		return "TEXT"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDuration:
		return "DOUBLE PRECISION"
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeGeometry, schema.TypeGeography:
		return "BYTEA"
	default:
		return ""
	}
}

// BuildCreateTableSQL returns a Postgres CREATE TABLE IF NOT EXISTS statement.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return Dialect.BuildCreateTableSQL(t)
}

// EnsureTable creates table for cols if it does not exist. It is idempotent.
func EnsureTable(ctx context.Context, repo storage.Repository, table string, cols schema.Schema) error {
	def, err := gddl.FromSchema(table, cols, MapType)
	if err != nil {
		return err
	}
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
