// Package ddl contains MySQL-specific helpers for generating DDL.
package ddl

import (
	"context"
	"strings"

	gddl "shpetl/internal/ddl"
	"shpetl/internal/schema"
	"shpetl/internal/storage"
)

// Dialect renders CREATE TABLE IF NOT EXISTS with backtick-quoted
// identifiers.
var Dialect = gddl.Dialect{
	Name:              "mysql",
	Quote:             QuoteIdent,
	IfNotExists:       true,
	PrimaryKeyNotNull: true,
}

// MapType maps a column type into a MySQL column type.
func MapType(t schema.Type) string {
	switch t {
	case schema.TypeString:
		return "LONGTEXT"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDuration:
		return "DOUBLE"
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeGeometry, schema.TypeGeography:
		return "LONGBLOB"
	default:
		return ""
	}
}

// BuildCreateTableSQL returns a MySQL CREATE TABLE IF NOT EXISTS statement.
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

// QuoteIdent backtick-quotes an identifier, doubling embedded backticks.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}
