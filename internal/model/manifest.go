package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/relation"
)

// Manifest declares models explicitly, for classes the source scanner
// cannot read or to override what it found.
type Manifest struct {
	Models []ManifestModel `yaml:"models"`
}

// ManifestModel is one declared model.
type ManifestModel struct {
	Name        string             `yaml:"name"`
	Table       string             `yaml:"table,omitempty"`
	Fillable    []string           `yaml:"fillable"`
	Casts       []Cast             `yaml:"casts,omitempty"`
	SoftDeletes bool               `yaml:"soft_deletes,omitempty"`
	Relations   []ManifestRelation `yaml:"relations,omitempty"`
}

// ManifestRelation declares a relationship accessor.
type ManifestRelation struct {
	Method     string `yaml:"method"`
	Kind       string `yaml:"kind,omitempty"` // default belongsTo
	Model      string `yaml:"model"`
	ForeignKey string `yaml:"foreign_key,omitempty"`
	OwnerKey   string `yaml:"owner_key,omitempty"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	for i, mm := range m.Models {
		if mm.Name == "" {
			return nil, fmt.Errorf("manifest %s: model %d has no name", path, i+1)
		}
	}
	return m, nil
}

// LoadManifest registers every model the manifest declares, replacing
// scanned models of the same name.
func (r *Registry) LoadManifest(path string) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}
	for _, mm := range m.Models {
		r.RegisterDefinition(mm.definition(r.TableFor))
	}
	return nil
}

func (mm ManifestModel) definition(tableFor func(string) string) *Definition {
	def := &Definition{
		Class:       naming.Basename(mm.Name),
		TableName:   mm.Table,
		Fields:      mm.Fillable,
		CastRules:   mm.Casts,
		SoftDeletes: mm.SoftDeletes,
	}
	if def.TableName == "" {
		def.TableName = naming.TableForModel(def.Class)
	}

	for _, rel := range mm.Relations {
		kind := relation.Kind(rel.Kind)
		if kind == "" {
			kind = relation.BelongsTo
		}
		if rel.ForeignKey == "" {
			rel.ForeignKey = naming.ForeignKeyForAccessor(rel.Method)
		}
		if rel.OwnerKey == "" {
			rel.OwnerKey = relation.DefaultOwnerKey
		}
		def.Methods = append(def.Methods, Accessor{
			Name: rel.Method,
			Probe: func() (*Relation, error) {
				return &Relation{
					Kind:       kind,
					Related:    naming.Basename(rel.Model),
					Table:      tableFor(rel.Model),
					ForeignKey: rel.ForeignKey,
					OwnerKey:   rel.OwnerKey,
				}, nil
			},
		})
	}
	return def
}
