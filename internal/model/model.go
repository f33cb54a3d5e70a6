// Package model describes Eloquent model classes as the migration generator
// sees them: a table, mass-assignable fields, casts, the soft-delete marker
// and relationship accessors.
package model

import (
	"github.com/modelsync/modelsync/internal/relation"
)

// Model is the metadata of one model class.
type Model interface {
	Name() string
	Table() string
	Fillable() []string
	Casts() []Cast
	UsesSoftDeletes() bool
	// Accessors lists the public zero-argument methods declared directly on
	// the class, in declaration order.
	Accessors() []Accessor
}

// Cast is one attribute cast declaration. Order follows the source.
type Cast struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// Accessor is a named relationship probe. Probe returns the relation the
// method builds; any error means the method is not a relationship.
type Accessor struct {
	Name  string
	Probe func() (*Relation, error)
}

// Relation is the result of invoking a relationship accessor.
type Relation struct {
	Kind       relation.Kind
	Related    string // class name of the related model
	Table      string // table of the related model
	ForeignKey string
	OwnerKey   string
}

// Definition is a Model backed by plain values. Both the source scanner and
// the manifest produce definitions.
type Definition struct {
	Class       string
	TableName   string
	Fields      []string
	CastRules   []Cast
	SoftDeletes bool
	Methods     []Accessor
	Path        string // source file, if any
}

func (d *Definition) Name() string          { return d.Class }
func (d *Definition) Table() string         { return d.TableName }
func (d *Definition) Fillable() []string    { return d.Fields }
func (d *Definition) Casts() []Cast         { return d.CastRules }
func (d *Definition) UsesSoftDeletes() bool { return d.SoftDeletes }
func (d *Definition) Accessors() []Accessor { return d.Methods }

// CastFor returns the declared cast of field, or "".
func CastFor(m Model, field string) string {
	for _, c := range m.Casts() {
		if c.Field == field {
			return c.Type
		}
	}
	return ""
}
