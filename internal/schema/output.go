package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteYAML writes the schema to path, headed by its summary line.
func (s *Schema) WriteYAML(path string) error {
	data, err := s.ToYAML()
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	header := "# " + s.Summary() + "\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// ToYAML returns the schema as a YAML byte slice.
func (s *Schema) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// Summary returns a human-readable summary of the schema.
func (s *Schema) Summary() string {
	var structured int
	for _, c := range s.Columns {
		if c.Foreign != nil {
			structured++
		}
	}
	return fmt.Sprintf(
		"Table %s: %d columns, %d foreign keys, %d constrained identifiers",
		s.Table, len(s.Columns), len(s.ForeignKeys), structured,
	)
}
