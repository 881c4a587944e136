// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
//
// The builder here:
//   - Uses SQL Server-style identifier quoting: [schema].[table], [col].
//   - Wraps CREATE TABLE in an IF OBJECT_ID(...) IS NULL guard since T-SQL
//     does not support CREATE TABLE IF NOT EXISTS.
package ddl

import (
	"context"
	"fmt"
	"strings"

	gddl "shpetl/internal/ddl"
	"shpetl/internal/schema"
	"shpetl/internal/storage"
)

// Dialect renders the guarded T-SQL form:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE,
//	    [col2] TYPE
//	  );
//	END;
var Dialect = gddl.Dialect{
	Name:  "mssql",
	Quote: quoteIdent,
	Guard: func(fqn, create string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  %s\nEND;",
			strings.ReplaceAll(fqn, "'", "''"), create)
	},
}

// MapType maps a column type into a SQL Server column type. Spatial cells
// are stored as EWKB in VARBINARY(MAX) and durations as seconds.
func MapType(t schema.Type) string {
	switch t {
	case schema.TypeString:
		return "NVARCHAR(MAX)"
	case schema.TypeInt:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDuration:
		return "FLOAT"
	case schema.TypeBool:
		return "BIT"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeGeometry, schema.TypeGeography:
		return "VARBINARY(MAX)"
	default:
		return ""
	}
}

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return Dialect.BuildCreateTableSQL(t)
}

// EnsureTable creates the target SQL Server table if it does not already
// exist. The operation is idempotent and safe to call multiple times.
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

// quoteIdent quotes a single identifier segment using bracket syntax,
// escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
