// Package discovery reads table schemas from a live database.
package discovery

import (
	"context"
	"sort"
	"strings"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/schema"
	"github.com/modelsync/modelsync/internal/typemap"
)

// Discoverer discovers the table schemas of a database.
type Discoverer interface {
	// Connect establishes a read-only connection to the database.
	Connect(ctx context.Context) error

	// Discover returns one schema per table, sorted by table name.
	Discover(ctx context.Context) ([]*schema.Schema, error)

	// Close closes the database connection.
	Close() error
}

// New creates a Discoverer for the configured driver. A nil type map uses
// the driver defaults.
func New(cfg *config.DatabaseConfig, tm *typemap.TypeMap) (Discoverer, error) {
	if tm == nil {
		tm = typemap.ForDriver(cfg.Driver)
	}
	switch cfg.Driver {
	case "pgsql", "postgres", "postgresql":
		return NewPostgres(cfg, tm), nil
	case "mysql", "mariadb":
		return NewMySQL(cfg, tm), nil
	case "sqlite", "sqlite3":
		return NewSQLite(cfg, tm), nil
	default:
		return nil, &UnsupportedDBError{DBType: cfg.Driver}
	}
}

// UnsupportedDBError is returned when the database driver is not supported.
type UnsupportedDBError struct {
	DBType string
}

func (e *UnsupportedDBError) Error() string {
	if e.DBType == "" {
		return "no database driver configured"
	}
	return "unsupported database type: " + e.DBType
}

// table is the driver-neutral catalog data of one table.
type table struct {
	name        string
	columns     []column
	foreignKeys []foreignKey
}

type column struct {
	name       string
	sqlType    string
	primaryKey bool
}

type foreignKey struct {
	constraint string
	column     string
	refTable   string
	refColumn  string
}

// toSchema converts catalog data into a Schema. The integer primary key
// "id" becomes the id shorthand, a deleted_at timestamp becomes the
// soft-delete marker and single-column foreign keys become constrained
// foreignId columns. Composite foreign keys are left out.
func (t *table) toSchema(tm *typemap.TypeMap) *schema.Schema {
	s := schema.New(t.name)

	perConstraint := make(map[string]int)
	for _, fk := range t.foreignKeys {
		perConstraint[fk.constraint]++
	}
	refs := make(map[string]foreignKey)
	for _, fk := range t.foreignKeys {
		if perConstraint[fk.constraint] == 1 {
			refs[fk.column] = fk
		}
	}

	for _, c := range t.columns {
		verb := tm.Resolve(c.sqlType)

		if fk, ok := refs[c.name]; ok {
			owner := fk.refColumn
			if owner == "" {
				owner = "id"
			}
			s.Set(schema.Column{
				Name: c.name,
				Type: schema.TypeForeignID,
				Foreign: &schema.ForeignRef{
					On:         fk.refTable,
					ForeignKey: c.name,
					OwnerKey:   owner,
				},
			})
			s.SetForeignKey(schema.ForeignKey{Column: c.name, Table: fk.refTable, OwnerKey: owner})
			continue
		}

		switch {
		case c.primaryKey && c.name == "id" && isInteger(verb):
			verb = schema.TypeID
		case c.name == "deleted_at" && isTimestamp(verb):
			verb = schema.TypeSoftDeletes
		}
		s.Set(schema.Column{Name: c.name, Type: verb})
	}
	return s
}

func isInteger(t schema.ColumnType) bool {
	return strings.HasSuffix(strings.ToLower(string(t)), "integer")
}

func isTimestamp(t schema.ColumnType) bool {
	switch t {
	case schema.TypeTimestamp, "timestampTz", "dateTime":
		return true
	}
	return false
}

func sortedSchemas(tables map[string]*table, tm *typemap.TypeMap) []*schema.Schema {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*schema.Schema, 0, len(names))
	for _, name := range names {
		out = append(out, tables[name].toSchema(tm))
	}
	return out
}
