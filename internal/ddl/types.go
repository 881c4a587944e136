package ddl

// ColumnDef is one column of a target table. Name is unquoted; the
// Dialect quotes it when rendering. SQLType is already mapped for the
// backend (see FromSchema).
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef is a target table: its possibly schema-qualified name and the
// columns in load order, which matches the composed schema of the reader.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
