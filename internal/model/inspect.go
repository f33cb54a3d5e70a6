package model

import (
	"strings"

	"github.com/modelsync/modelsync/internal/relation"
	"github.com/modelsync/modelsync/internal/schema"
)

// belongsTo runs every accessor probe and keeps the belongsTo results in
// accessor order. Probe failures are treated as "not a relationship".
func belongsTo(m Model) []*Relation {
	var rels []*Relation
	for _, a := range m.Accessors() {
		if a.Probe == nil {
			continue
		}
		rel, err := a.Probe()
		if err != nil || rel == nil || rel.Kind != relation.BelongsTo {
			continue
		}
		rels = append(rels, rel)
	}
	return rels
}

// Inspect derives the table schema a model implies. Fillable fields appear
// in declaration order; a field that a belongsTo accessor uses as its
// foreign key becomes a constrained foreignId. Foreign keys of accessors
// whose column is not fillable follow the fillable fields.
func Inspect(m Model) *schema.Schema {
	s := schema.New(m.Table())

	related := make(map[string]*Relation)
	var order []string
	for _, rel := range belongsTo(m) {
		if _, seen := related[rel.ForeignKey]; !seen {
			order = append(order, rel.ForeignKey)
		}
		related[rel.ForeignKey] = rel
	}

	for _, field := range m.Fillable() {
		if rel, ok := related[field]; ok {
			setForeign(s, rel)
			continue
		}
		s.Set(schema.Column{Name: field, Type: fieldType(field, CastFor(m, field))})
	}
	for _, fk := range order {
		if !s.Has(fk) {
			setForeign(s, related[fk])
		}
	}

	s.Prepend(schema.Column{Name: "id", Type: schema.TypeID})
	if m.UsesSoftDeletes() {
		s.Set(schema.Column{Name: "deleted_at", Type: schema.TypeSoftDeletes})
	}
	if !s.Has("created_at") && !s.Has("updated_at") {
		s.Set(schema.Column{Name: "timestamps", Type: schema.TypeTimestamps})
	}
	return s
}

func setForeign(s *schema.Schema, rel *Relation) {
	s.Set(schema.Column{
		Name: rel.ForeignKey,
		Type: schema.TypeForeignID,
		Foreign: &schema.ForeignRef{
			On:         rel.Table,
			ForeignKey: rel.ForeignKey,
			OwnerKey:   rel.OwnerKey,
		},
	})
	s.SetForeignKey(schema.ForeignKey{Column: rel.ForeignKey, Table: rel.Table, OwnerKey: rel.OwnerKey})
}

// fieldType classifies a plain fillable field by its name and cast.
func fieldType(field, cast string) schema.ColumnType {
	if strings.HasSuffix(field, "_id") {
		return schema.TypeUnsignedBigInteger
	}
	// datetime:Y-m-d and similar carry a format suffix
	cast, _, _ = strings.Cut(cast, ":")
	switch cast {
	case "datetime", "date", "timestamp":
		return schema.TypeTimestamp
	case "boolean":
		return schema.TypeBoolean
	case "json", "array":
		return schema.TypeJSON
	case "int", "integer":
		return schema.TypeInteger
	default:
		return schema.TypeString
	}
}

// DependsOn returns the distinct tables referenced by belongsTo accessors,
// in accessor order.
func DependsOn(m Model) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, rel := range belongsTo(m) {
		if seen[rel.Table] {
			continue
		}
		seen[rel.Table] = true
		tables = append(tables, rel.Table)
	}
	return tables
}
