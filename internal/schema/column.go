// Package schema describes the columns of the rows produced by the reader:
// the attribute store's native columns followed by the columns appended by
// the enrichment stages.
package schema

import "strings"

// Type is the declared logical type of a column. Storage backends map it
// to a dialect-specific SQL type when creating the target table.
type Type string

const (
	TypeString    Type = "string"
	TypeInt       Type = "int"
	TypeFloat     Type = "float"
	TypeBool      Type = "bool"
	TypeDate      Type = "date"
	TypeGeometry  Type = "geometry"
	TypeGeography Type = "geography"
	TypeDuration  Type = "duration"
)

// Spatial reports whether values of t are geo.Geometry or geo.Geography cells.
func (t Type) Spatial() bool {
	return t == TypeGeometry || t == TypeGeography
}

// Column is a single column descriptor. Ordinal is the 0-based position of
// the column in the composed schema; cell i of every row matches column i.
type Column struct {
	Name     string
	Type     Type
	Ordinal  int
	ReadOnly bool
}

// Schema is an ordered column list.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the column called name, matching
// case-insensitively the way DBF drivers resolve ordinals. It returns -1
// when no column matches.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	for i, c := range s {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// Clone returns a copy of s that shares no memory with it.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Renumber sets every column's Ordinal to its position.
func (s Schema) Renumber() {
	for i := range s {
		s[i].Ordinal = i
	}
}
