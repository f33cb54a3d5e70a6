// Package migration reads create-table migration files into a Schema.
package migration

import (
	"regexp"

	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/schema"
)

var (
	// $table->id() / timestamps() / softDeletes(), or
	// $table-><verb>('<name>') with exactly one string literal argument.
	columnPattern = regexp.MustCompile(
		`\$table->(?:(id|timestamps|softDeletes)\(\)|(\w+)\(['"]([^'"]+)['"]\))`)

	// ->foreignId('user_id')->constrained() and ->constrained('users'[, 'id'])
	constrainedPattern = regexp.MustCompile(
		`->foreignId\(['"]([^'"]+)['"]\)->constrained\((?:['"]([^'"]+)['"](?:\s*,\s*['"]([^'"]+)['"])?)?\)`)

	// ->foreign('user_id')->references('id')->on('users')
	referencesPattern = regexp.MustCompile(
		`->foreign\(['"]([^'"]+)['"]\)->references\(['"]([^'"]+)['"]\)->on\(['"]([^'"]+)['"]\)`)
)

// Single-argument Blueprint calls that name an existing column rather than
// define one.
var constraintVerbs = map[string]bool{
	"foreign":          true,
	"index":            true,
	"unique":           true,
	"primary":          true,
	"fullText":         true,
	"spatialIndex":     true,
	"dropColumn":       true,
	"dropForeign":      true,
	"dropIndex":        true,
	"dropUnique":       true,
	"dropPrimary":      true,
	"dropForeignIdFor": true,
}

// Marker column names used for the zero-argument shorthands.
const (
	IDColumn         = "id"
	TimestampsColumn = "timestamps"
	SoftDeleteColumn = "deleted_at"
)

// Parse extracts the columns and foreign keys of table from migration
// source text. Columns appear in source order; a later definition of the
// same column replaces the earlier one in place. Index, constraint and drop
// calls are not columns. Constructs that match none of the patterns are
// ignored.
func Parse(table, content string) *schema.Schema {
	s := schema.New(table)

	for _, m := range columnPattern.FindAllStringSubmatch(content, -1) {
		switch m[1] {
		case "id":
			s.Set(schema.Column{Name: IDColumn, Type: schema.TypeID})
		case "timestamps":
			s.Set(schema.Column{Name: TimestampsColumn, Type: schema.TypeTimestamps})
		case "softDeletes":
			s.Set(schema.Column{Name: SoftDeleteColumn, Type: schema.TypeSoftDeletes})
		default:
			if constraintVerbs[m[2]] {
				continue
			}
			s.Set(schema.Column{Name: m[3], Type: schema.ColumnType(m[2])})
		}
	}

	for _, m := range constrainedPattern.FindAllStringSubmatch(content, -1) {
		column, target, owner := m[1], m[2], m[3]
		if target == "" {
			target = naming.TableForForeignKey(column)
		}
		if owner == "" {
			owner = "id"
		}
		s.SetForeignKey(schema.ForeignKey{Column: column, Table: target, OwnerKey: owner})
	}

	for _, m := range referencesPattern.FindAllStringSubmatch(content, -1) {
		s.SetForeignKey(schema.ForeignKey{Column: m[1], Table: m[3], OwnerKey: m[2]})
	}

	return s
}
