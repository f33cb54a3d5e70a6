package schema

import (
	"fmt"
	"strings"
)

// ColumnType is a migration builder verb (string, boolean, foreignId, ...).
// The parser keeps verbs it does not know as-is.
type ColumnType string

const (
	TypeID                 ColumnType = "id"
	TypeString             ColumnType = "string"
	TypeInteger            ColumnType = "integer"
	TypeUnsignedBigInteger ColumnType = "unsignedBigInteger"
	TypeBoolean            ColumnType = "boolean"
	TypeTimestamp          ColumnType = "timestamp"
	TypeJSON               ColumnType = "json"
	TypeSoftDeletes        ColumnType = "softDeletes"
	TypeTimestamps         ColumnType = "timestamps"
	TypeForeignID          ColumnType = "foreignId"
)

// IsMarker reports whether the type stands for framework-managed columns
// rather than a single user field.
func (t ColumnType) IsMarker() bool {
	switch t {
	case TypeID, TypeSoftDeletes, TypeTimestamps:
		return true
	}
	return false
}

// Schema is the normalized column and foreign key set of one table.
type Schema struct {
	Table       string       `yaml:"table"`
	Columns     []Column     `yaml:"columns"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
}

// Column is a single named column. Foreign is set only for structured
// foreignId specs, which carry their target table and keys.
type Column struct {
	Name    string      `yaml:"name"`
	Type    ColumnType  `yaml:"type"`
	Foreign *ForeignRef `yaml:"foreign,omitempty"`
}

// ForeignRef describes a constrained foreign identifier.
type ForeignRef struct {
	On         string `yaml:"on"`
	ForeignKey string `yaml:"foreign_key"`
	OwnerKey   string `yaml:"owner_key"`
}

// ForeignKey maps a local column to the table it references.
type ForeignKey struct {
	Column   string `yaml:"column"`
	Table    string `yaml:"table"`
	OwnerKey string `yaml:"owner_key,omitempty"`
}

// New returns an empty schema for table.
func New(table string) *Schema {
	return &Schema{Table: table}
}

// IsEmpty reports whether no columns were found.
func (s *Schema) IsEmpty() bool {
	return len(s.Columns) == 0
}

// Set records a column. An existing column of the same name is overwritten
// in place, keeping its original position.
func (s *Schema) Set(c Column) {
	for i := range s.Columns {
		if s.Columns[i].Name == c.Name {
			s.Columns[i] = c
			return
		}
	}
	s.Columns = append(s.Columns, c)
}

// Prepend inserts c as the first column unless a column of that name exists.
func (s *Schema) Prepend(c Column) {
	if s.Has(c.Name) {
		return
	}
	s.Columns = append([]Column{c}, s.Columns...)
}

// Column returns the named column.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether the named column exists.
func (s *Schema) Has(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// SetForeignKey records a foreign key; last definition for a column wins.
func (s *Schema) SetForeignKey(fk ForeignKey) {
	for i := range s.ForeignKeys {
		if s.ForeignKeys[i].Column == fk.Column {
			s.ForeignKeys[i] = fk
			return
		}
	}
	s.ForeignKeys = append(s.ForeignKeys, fk)
}

// ColumnNames returns the column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// DependsOn returns the distinct referenced tables in foreign key order.
func (s *Schema) DependsOn() []string {
	seen := make(map[string]bool)
	var tables []string
	for _, fk := range s.ForeignKeys {
		if seen[fk.Table] {
			continue
		}
		seen[fk.Table] = true
		tables = append(tables, fk.Table)
	}
	return tables
}

// DanglingForeignKeyError lists foreign keys whose column is not defined.
type DanglingForeignKeyError struct {
	Table   string
	Columns []string
}

func (e *DanglingForeignKeyError) Error() string {
	return fmt.Sprintf("table %s: foreign keys reference undefined columns: %s",
		e.Table, strings.Join(e.Columns, ", "))
}

// Validate checks that every foreign key column is also a column.
func (s *Schema) Validate() error {
	var dangling []string
	for _, fk := range s.ForeignKeys {
		if !s.Has(fk.Column) {
			dangling = append(dangling, fk.Column)
		}
	}
	if len(dangling) > 0 {
		return &DanglingForeignKeyError{Table: s.Table, Columns: dangling}
	}
	return nil
}

// WithoutDanglingForeignKeys returns a copy of s keeping only foreign keys
// whose column exists.
func (s *Schema) WithoutDanglingForeignKeys() *Schema {
	out := &Schema{Table: s.Table, Columns: append([]Column(nil), s.Columns...)}
	for _, fk := range s.ForeignKeys {
		if s.Has(fk.Column) {
			out.ForeignKeys = append(out.ForeignKeys, fk)
		}
	}
	return out
}
