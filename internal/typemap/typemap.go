// Package typemap maps database column types to migration builder verbs.
package typemap

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modelsync/modelsync/internal/schema"
)

// TypeMap holds the mapping from source column types to builder verbs.
type TypeMap struct {
	Mappings  map[string]schema.ColumnType `yaml:"mappings"`
	Overrides map[string]schema.ColumnType `yaml:"overrides,omitempty"`
	defaults  map[string]schema.ColumnType // not serialized; populated by ForDriver
}

// DefaultPostgres returns the default type mapping for PostgreSQL.
func DefaultPostgres() *TypeMap {
	m := map[string]schema.ColumnType{
		"integer":                     schema.TypeInteger,
		"int":                         schema.TypeInteger,
		"int4":                        schema.TypeInteger,
		"smallint":                    "smallInteger",
		"bigint":                      "bigInteger",
		"int8":                        "bigInteger",
		"serial":                      schema.TypeInteger,
		"bigserial":                   "bigInteger",
		"numeric":                     "decimal",
		"decimal":                     "decimal",
		"real":                        "float",
		"double precision":            "double",
		"character varying":           schema.TypeString,
		"varchar":                     schema.TypeString,
		"character":                   "char",
		"char":                        "char",
		"text":                        "text",
		"boolean":                     schema.TypeBoolean,
		"bool":                        schema.TypeBoolean,
		"date":                        "date",
		"time":                        "time",
		"timestamp":                   schema.TypeTimestamp,
		"timestamp without time zone": schema.TypeTimestamp,
		"timestamp with time zone":    "timestampTz",
		"uuid":                        "uuid",
		"json":                        schema.TypeJSON,
		"jsonb":                       "jsonb",
		"bytea":                       "binary",
		"inet":                        "ipAddress",
		"macaddr":                     "macAddress",
	}
	return &TypeMap{Mappings: m}
}

// DefaultMySQL returns the default type mapping for MySQL and MariaDB.
func DefaultMySQL() *TypeMap {
	m := map[string]schema.ColumnType{
		"tinyint(1)":         schema.TypeBoolean,
		"tinyint":            "tinyInteger",
		"smallint":           "smallInteger",
		"mediumint":          "mediumInteger",
		"int":                schema.TypeInteger,
		"integer":            schema.TypeInteger,
		"int unsigned":       "unsignedInteger",
		"bigint":             "bigInteger",
		"bigint unsigned":    schema.TypeUnsignedBigInteger,
		"decimal":            "decimal",
		"float":              "float",
		"double":             "double",
		"varchar":            schema.TypeString,
		"char":               "char",
		"text":               "text",
		"tinytext":           "tinyText",
		"mediumtext":         "mediumText",
		"longtext":           "longText",
		"date":               "date",
		"time":               "time",
		"datetime":           "dateTime",
		"timestamp":          schema.TypeTimestamp,
		"year":               "year",
		"json":               schema.TypeJSON,
		"blob":               "binary",
		"enum":               schema.TypeString,
		"bit(1)":             schema.TypeBoolean,
		"binary(16)":         "uuid",
		"char(36)":           "uuid",
		"mediumint unsigned": "unsignedMediumInteger",
	}
	return &TypeMap{Mappings: m}
}

// DefaultSQLite returns the default type mapping for SQLite declared types.
func DefaultSQLite() *TypeMap {
	m := map[string]schema.ColumnType{
		"integer":  schema.TypeInteger,
		"int":      schema.TypeInteger,
		"bigint":   "bigInteger",
		"varchar":  schema.TypeString,
		"text":     "text",
		"real":     "float",
		"numeric":  "decimal",
		"float":    "float",
		"double":   "double",
		"tinyint":  schema.TypeBoolean,
		"boolean":  schema.TypeBoolean,
		"date":     "date",
		"datetime": schema.TypeTimestamp,
		"blob":     "binary",
	}
	return &TypeMap{Mappings: m}
}

// ForDriver returns a TypeMap with defaults for the given database driver.
func ForDriver(driver string) *TypeMap {
	var tm *TypeMap
	switch driver {
	case "mysql", "mariadb":
		tm = DefaultMySQL()
	case "sqlite", "sqlite3":
		tm = DefaultSQLite()
	default:
		tm = DefaultPostgres()
	}
	// Store defaults for override tracking
	tm.defaults = make(map[string]schema.ColumnType, len(tm.Mappings))
	for k, v := range tm.Mappings {
		tm.defaults[k] = v
	}
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]schema.ColumnType)
	}
	return tm
}

var sizePattern = regexp.MustCompile(`\([^)]*\)`)

// normalize lowercases a declared type, drops size arguments and collapses
// whitespace: "BIGINT(20) UNSIGNED" -> "bigint unsigned".
func normalize(sourceType string) string {
	t := strings.ToLower(strings.TrimSpace(sourceType))
	t = sizePattern.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

// Resolve returns the builder verb for the given source type. The exact
// declared type is tried first (tinyint(1)), then its normalized form,
// then the normalized form without modifiers.
func (tm *TypeMap) Resolve(sourceType string) schema.ColumnType {
	exact := strings.ToLower(strings.TrimSpace(sourceType))
	if verb, ok := tm.Mappings[exact]; ok {
		return verb
	}
	norm := normalize(sourceType)
	if verb, ok := tm.Mappings[norm]; ok {
		return verb
	}
	if base, _, found := strings.Cut(norm, " "); found {
		if verb, ok := tm.Mappings[base]; ok {
			return verb
		}
	}
	return schema.TypeString // fallback
}

// Override applies a user override for a source type.
func (tm *TypeMap) Override(sourceType string, verb schema.ColumnType) {
	tm.Mappings[sourceType] = verb
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]schema.ColumnType)
	}
	// Track override only if different from default
	if tm.defaults != nil {
		if def, ok := tm.defaults[sourceType]; ok && def == verb {
			delete(tm.Overrides, sourceType)
			return
		}
	}
	tm.Overrides[sourceType] = verb
}

// Merge applies every mapping of other as an override.
func (tm *TypeMap) Merge(other *TypeMap) {
	for k, v := range other.Mappings {
		tm.Override(k, v)
	}
}

// IsOverridden returns true if the source type has been overridden from its default.
func (tm *TypeMap) IsOverridden(sourceType string) bool {
	if tm.Overrides == nil {
		return false
	}
	_, ok := tm.Overrides[sourceType]
	return ok
}

// SortedTypes returns the source type names sorted alphabetically.
func (tm *TypeMap) SortedTypes() []string {
	types := make([]string, 0, len(tm.Mappings))
	for k := range tm.Mappings {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// WriteYAML writes the type map to path in the format LoadYAML reads, so the
// file can be edited and pointed at by database.type_map.
func (tm *TypeMap) WriteYAML(path string) error {
	data, err := yaml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling type map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads a type mapping from a YAML file.
func LoadYAML(path string) (*TypeMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type map file: %w", err)
	}
	tm := &TypeMap{}
	if err := yaml.Unmarshal(data, tm); err != nil {
		return nil, fmt.Errorf("parsing type map: %w", err)
	}
	if tm.Mappings == nil {
		tm.Mappings = make(map[string]schema.ColumnType)
	}
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]schema.ColumnType)
	}
	return tm, nil
}
