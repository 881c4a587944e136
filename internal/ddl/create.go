// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// The model stays generic: a Dialect carries the few things backends
// disagree on (identifier quoting, IF NOT EXISTS support, primary key
// rendering). Backend packages (internal/storage/<kind>/ddl) declare their
// Dialect and a type mapping from schema.Type.
package ddl

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect describes how a backend renders CREATE TABLE.
type Dialect struct {
	// Name prefixes error messages (e.g. "postgres").
	Name string

	// Quote quotes a single identifier segment. Nil emits identifiers as-is.
	Quote func(id string) string

	// IfNotExists renders CREATE TABLE IF NOT EXISTS.
	IfNotExists bool

	// Guard, when set, wraps the CREATE statement for dialects without
	// IF NOT EXISTS. It receives the quoted FQN and the statement.
	Guard func(fqn, create string) string

	// SortPrimaryKey orders the PRIMARY KEY columns alphabetically.
	SortPrimaryKey bool

	// PrimaryKeyNotNull forces NOT NULL on primary key columns.
	PrimaryKeyNotNull bool
}

// BuildCreateTableSQL renders a generic CREATE TABLE statement from a
// TableDef, without quoting or IF NOT EXISTS.
func BuildCreateTableSQL(t TableDef) (string, error) {
	return Dialect{}.BuildCreateTableSQL(t)
}

// BuildCreateTableSQL renders t in dialect d.
//
// Rules:
//
//   - t.FQN must be non-empty; dotted names are quoted per segment.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL]
//
//     where NOT NULL is added when Nullable == false.
//
//   - Columns with PrimaryKey == true are collected and rendered as a separate
//     PRIMARY KEY (<col1>, <col2>, ...) clause at the end of the column list.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	prefix := "ddl"
	if d.Name != "" {
		prefix = d.Name + " ddl"
	}

	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", prefix)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", prefix)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", prefix, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", prefix, name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || (c.PrimaryKey && d.PrimaryKeyNotNull) {
			sb.WriteString(" NOT NULL")
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(name))
		}
	}

	if len(pks) > 0 {
		if d.SortPrimaryKey {
			sort.Strings(pks)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d.Guard != nil {
		create := fmt.Sprintf("CREATE TABLE %s (\n    %s\n  );", quoted, strings.Join(cols, ",\n    "))
		return d.Guard(quoted, create), nil
	}

	verb := "CREATE TABLE"
	if d.IfNotExists {
		verb = "CREATE TABLE IF NOT EXISTS"
	}
	return fmt.Sprintf("%s %s (\n  %s\n);", verb, quoted, strings.Join(cols, ",\n  ")), nil
}

// QuoteFQN quotes a possibly schema-qualified name segment by segment.
// Empty segments are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}
