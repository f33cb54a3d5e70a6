package migration

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/modelsync/modelsync/internal/schema"
)

// Extractor reads table schemas from a migrations directory.
type Extractor struct {
	Dir      string
	Excluded func(table string) bool
	Logger   *slog.Logger
}

// Extract returns the schema of table. Excluded tables return an empty
// schema without reading anything; so does a table with no migration.
func (e *Extractor) Extract(table string) (*schema.Schema, error) {
	log := e.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if e.Excluded != nil && e.Excluded(table) {
		log.Debug("table excluded", "table", table)
		return schema.New(table), nil
	}

	path, err := Find(e.Dir, table)
	if err != nil {
		return nil, err
	}
	if path == "" {
		log.Debug("no migration found", "table", table, "dir", e.Dir)
		return schema.New(table), nil
	}

	return e.ExtractFile(path, table)
}

// ExtractFile parses a known migration file for table.
func (e *Extractor) ExtractFile(path, table string) (*schema.Schema, error) {
	if e.Excluded != nil && e.Excluded(table) {
		return schema.New(table), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading migration %s: %w", path, err)
	}

	s := Parse(table, string(data))
	if e.Logger != nil {
		e.Logger.Debug("parsed migration", "path", path, "summary", s.Summary())
	}
	return s, nil
}
