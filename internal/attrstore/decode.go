// Package attrstore reads the attribute half of a shapefile. DBF streams
// the .dbf file directly; Materialized first copies it into a temporary
// SQLite database and reads it back with a single ordered query.
package attrstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"

	"shpetl/internal/schema"
)

const dbfDateLayout = "20060102"

// columnType maps a DBF field to a logical column type.
func columnType(f shp.Field) schema.Type {
	switch f.Fieldtype {
	case 'C':
		return schema.TypeString
	case 'N':
		if f.Precision == 0 {
			return schema.TypeInt
		}
		return schema.TypeFloat
	case 'F':
		return schema.TypeFloat
	case 'L':
		return schema.TypeBool
	case 'D':
		return schema.TypeDate
	default:
		return schema.TypeString
	}
}

// columnsOf builds the native schema of a DBF field list.
func columnsOf(fields []shp.Field) schema.Schema {
	cols := make(schema.Schema, len(fields))
	for i, f := range fields {
		cols[i] = schema.Column{Name: f.String(), Type: columnType(f), Ordinal: i}
	}
	return cols
}

// decode converts a raw DBF cell. Blank or malformed non-text cells are
// NULL, as DBF has no other way of expressing a missing value.
func decode(t schema.Type, raw string) any {
	// some writers pad with NUL instead of spaces
	raw = strings.TrimRight(raw, "\x00 ")
	if t == schema.TypeString {
		return raw
	}
	s := strings.TrimSpace(raw)
	if s == "" || strings.Trim(s, "*") == "" {
		return nil
	}
	switch t {
	case schema.TypeInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		// N fields without decimals still occasionally hold "12.0"
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return int64(f)
		}
		return nil
	case schema.TypeFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return nil
	case schema.TypeBool:
		switch s[0] {
		case 'T', 't', 'Y', 'y':
			return true
		case 'F', 'f', 'N', 'n':
			return false
		}
		return nil
	case schema.TypeDate:
		if d, err := time.Parse(dbfDateLayout, s); err == nil {
			return d
		}
		return nil
	}
	return raw
}
