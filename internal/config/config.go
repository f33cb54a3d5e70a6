package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modelsync/modelsync/internal/relation"
)

const (
	CurrentVersion = 1
	DefaultPath    = "modelsync.yaml"
)

// Config is the top-level configuration. It is loaded once per run and
// never modified afterwards.
type Config struct {
	Version        int    `yaml:"version"`
	ModelPath      string `yaml:"model_path"`
	ModelNamespace string `yaml:"model_namespace"`
	MigrationPath  string `yaml:"migration_path"`
	ManifestPath   string `yaml:"manifest_path,omitempty"`

	IgnoreColumns         []string          `yaml:"ignore_columns"`
	Hidden                []string          `yaml:"hidden"`
	Hashed                []string          `yaml:"hashed"`
	RelationshipOverrides map[string]string `yaml:"relationship_overrides,omitempty"`
	ExcludeTables         []string          `yaml:"exclude_tables"`

	Database DatabaseConfig `yaml:"database,omitempty"`
	Logging  LogConfig      `yaml:"logging,omitempty"`
}

// DatabaseConfig points at a live database used as a schema source.
type DatabaseConfig struct {
	Driver         string `yaml:"driver,omitempty"` // pgsql, mysql or sqlite
	DSN            string `yaml:"dsn,omitempty"`
	Schema         string `yaml:"schema,omitempty"` // postgres only, default public
	ConnectTimeout int    `yaml:"connect_timeout,omitempty"`
	TypeMap        string `yaml:"type_map,omitempty"` // YAML file of column type overrides
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default storage/logs
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file from the given path. When path is
// empty and the default file does not exist, defaults are returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	for column, rule := range cfg.RelationshipOverrides {
		if _, err := relation.ParseOverride(rule); err != nil {
			return nil, fmt.Errorf("relationship override for %s: %w", column, err)
		}
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Absent lists fall back to the defaults below; an explicit empty list
// disables them.
func (c *Config) applyDefaults() {
	if c.ModelPath == "" {
		c.ModelPath = filepath.Join("app", "Models")
	}
	if c.ModelNamespace == "" {
		c.ModelNamespace = `App\Models`
	}
	if c.MigrationPath == "" {
		c.MigrationPath = filepath.Join("database", "migrations")
	}
	if c.IgnoreColumns == nil {
		c.IgnoreColumns = []string{"created_at", "updated_at"}
	}
	if c.Hidden == nil {
		c.Hidden = []string{"password", "remember_token"}
	}
	if c.Hashed == nil {
		c.Hashed = []string{"password"}
	}
	if c.ExcludeTables == nil {
		c.ExcludeTables = []string{"cache", "migrations", "failed_jobs", "jobs", "personal_access_tokens"}
	}
	if c.RelationshipOverrides == nil {
		c.RelationshipOverrides = map[string]string{}
	}
	if c.Database.Schema == "" {
		c.Database.Schema = "public"
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = filepath.Join("storage", "logs")
	}
}

// IsIgnored reports whether column is kept out of $fillable and $casts.
func (c *Config) IsIgnored(column string) bool {
	return slices.Contains(c.IgnoreColumns, column)
}

// IsHashed reports whether column gets the hashed cast.
func (c *Config) IsHashed(column string) bool {
	return slices.Contains(c.Hashed, column)
}

// IsExcluded reports whether table is skipped entirely.
func (c *Config) IsExcluded(table string) bool {
	return slices.Contains(c.ExcludeTables, table)
}

// Overrides parses the configured relationship overrides. Load has already
// rejected malformed rules.
func (c *Config) Overrides() map[string]relation.Override {
	out := make(map[string]relation.Override, len(c.RelationshipOverrides))
	for column, rule := range c.RelationshipOverrides {
		o, err := relation.ParseOverride(rule)
		if err != nil {
			continue
		}
		out[column] = o
	}
	return out
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Database.DSN, err = ResolveValue(c.Database.DSN)
	if err != nil {
		return fmt.Errorf("database dsn: %w", err)
	}
	return nil
}

// ResolveValue resolves ${ENV:NAME} references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	v := os.Getenv(matches[1])
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", matches[1])
	}
	return strings.Replace(val, matches[0], v, 1), nil
}

// DefaultYAML is the commented config file written by `modelsync init`.
const DefaultYAML = `version: 1

# Where model classes are read from and written to.
model_path: app/Models
model_namespace: App\Models

# Where migration files are read from and written to.
migration_path: database/migrations

# Optional YAML manifest declaring models explicitly.
# manifest_path: modelsync.models.yaml

# Excluded from $fillable and $casts.
ignore_columns:
  - created_at
  - updated_at

# Added to $hidden when the column exists.
hidden:
  - password
  - remember_token

# Cast as 'hashed'.
hashed:
  - password

# Override inferred relationships.
# Format: column: "type:Fully\Qualified\Model@methodName"
relationship_overrides: {}
#  created_by: "belongsTo:App\Models\Admin@author"

# Skipped entirely during sync and model generation.
exclude_tables:
  - cache
  - migrations
  - failed_jobs
  - jobs
  - personal_access_tokens

# Live database used by --from-db.
# database:
#   driver: pgsql
#   dsn: ${ENV:DATABASE_URL}
#   type_map: modelsync.types.yaml

logging:
  level: info
  directory: storage/logs
`
