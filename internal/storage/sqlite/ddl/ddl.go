// Package ddl contains SQLite-specific helpers for generating DDL.
//
// SQLite types are affinities, so the mapping is coarse: integers and
// booleans share INTEGER, dates are ISO-8601 TEXT.
package ddl

import (
	"context"
	"strings"

	gddl "shpetl/internal/ddl"
	"shpetl/internal/schema"
	"shpetl/internal/storage"
)

// Dialect renders CREATE TABLE IF NOT EXISTS with double-quoted identifiers.
var Dialect = gddl.Dialect{
	Name:        "sqlite",
	Quote:       QuoteIdent,
	IfNotExists: true,
}

// MapType maps a column type into a SQLite column type.
func MapType(t schema.Type) string {
	switch t {
	case schema.TypeString, schema.TypeDate:
		return "TEXT"
	case schema.TypeInt, schema.TypeBool:
		return "INTEGER"
	case schema.TypeFloat, schema.TypeDuration:
		return "REAL"
	case schema.TypeGeometry, schema.TypeGeography:
		return "BLOB"
	default:
		return ""
	}
}

// BuildCreateTableSQL returns a SQLite CREATE TABLE IF NOT EXISTS statement.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return Dialect.BuildCreateTableSQL(t)
}

// EnsureTable creates table for cols if it does not exist.
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

// QuoteIdent double-quotes an identifier, doubling embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
