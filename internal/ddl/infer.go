package ddl

import (
	"fmt"
	"strings"

	"shpetl/internal/schema"
)

// TypeMapper maps a logical column type to a dialect SQL type. It returns ""
// for types the dialect cannot store.
type TypeMapper func(schema.Type) string

// FromSchema builds a TableDef for table from the reader's composed schema.
// Every column is nullable: attribute cells may be NULL and enrichment
// stages write NULL when a shape has no usable geometry.
func FromSchema(table string, cols schema.Schema, mapType TypeMapper) (TableDef, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return TableDef{}, fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(cols) == 0 {
		return TableDef{}, fmt.Errorf("ddl: schema for %s has no columns", table)
	}

	seen := make(map[string]struct{}, len(cols))
	def := TableDef{FQN: table, Columns: make([]ColumnDef, 0, len(cols))}
	for _, c := range cols {
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return TableDef{}, fmt.Errorf("ddl: column %q appears twice in %s", c.Name, table)
		}
		seen[key] = struct{}{}

		typ := mapType(c.Type)
		if typ == "" {
			return TableDef{}, fmt.Errorf("ddl: column %q has unmappable type %q", c.Name, c.Type)
		}
		def.Columns = append(def.Columns, ColumnDef{Name: c.Name, SQLType: typ, Nullable: true})
	}
	return def, nil
}
