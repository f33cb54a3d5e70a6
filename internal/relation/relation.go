// Package relation infers model relationships from a schema's foreign keys.
package relation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/schema"
)

// Kind is the Eloquent relation builder method.
type Kind string

const BelongsTo Kind = "belongsTo"

// DefaultOwnerKey is the owner key used for every inferred relation.
const DefaultOwnerKey = "id"

// ErrMalformedOverride is returned for override rules that are not of the
// form "kind:Fully\Qualified\Model@method".
var ErrMalformedOverride = errors.New("malformed relationship override")

// Descriptor is a relationship accessor to render on a model.
type Descriptor struct {
	Kind       Kind   `yaml:"kind"`
	Method     string `yaml:"method"`
	Model      string `yaml:"model"` // fully qualified, leading backslash
	ForeignKey string `yaml:"foreign_key"`
	OwnerKey   string `yaml:"owner_key"`
}

// Override is a parsed relationship override rule.
type Override struct {
	Kind   Kind
	Model  string
	Method string
}

// ParseOverride parses "belongsTo:App\Models\Admin@author".
func ParseOverride(rule string) (Override, error) {
	kind, rest, ok := strings.Cut(rule, ":")
	if !ok || kind == "" {
		return Override{}, fmt.Errorf("%w: %q: missing relation type", ErrMalformedOverride, rule)
	}
	model, method, ok := strings.Cut(rest, "@")
	if !ok || model == "" || method == "" {
		return Override{}, fmt.Errorf("%w: %q: expected Model@method", ErrMalformedOverride, rule)
	}
	return Override{
		Kind:   Kind(kind),
		Model:  strings.TrimPrefix(model, `\`),
		Method: method,
	}, nil
}

// Infer derives one descriptor per foreign key, in foreign key order.
// Overrides are keyed by column; namespace qualifies inferred model names.
func Infer(s *schema.Schema, overrides map[string]Override, namespace string) []Descriptor {
	relations := make([]Descriptor, 0, len(s.ForeignKeys))
	for _, fk := range s.ForeignKeys {
		if o, ok := overrides[fk.Column]; ok {
			relations = append(relations, Descriptor{
				Kind:       o.Kind,
				Method:     o.Method,
				Model:      `\` + o.Model,
				ForeignKey: fk.Column,
				OwnerKey:   DefaultOwnerKey,
			})
			continue
		}

		relations = append(relations, Descriptor{
			Kind:       BelongsTo,
			Method:     naming.AccessorForForeignKey(fk.Column),
			Model:      naming.Qualify(namespace, naming.ModelForTable(fk.Table)),
			ForeignKey: fk.Column,
			OwnerKey:   DefaultOwnerKey,
		})
	}
	return relations
}
