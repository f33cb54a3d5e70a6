package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/modelsync/modelsync/internal/codegen"
	"github.com/modelsync/modelsync/internal/graph"
	"github.com/modelsync/modelsync/internal/migration"
	"github.com/modelsync/modelsync/internal/model"
)

// Sort modes for bulk generation.
const (
	SortAuto = "auto"
	SortNone = "none"
)

// MigrationOptions controls single-model migration generation.
type MigrationOptions struct {
	Force    bool
	Path     string // overrides the configured migration directory
	Sequence *migration.Sequence
}

// BulkOptions controls migration generation for every registered model.
type BulkOptions struct {
	Force    bool
	Path     string
	Only     []string // bare model names; empty means all
	Except   []string
	Sort     string // auto (default) or none
	Sequence *migration.Sequence
}

// ModelEntry is one model in a bulk run.
type ModelEntry struct {
	Name         string
	TableName    string
	Dependencies []string
	Source       model.Model
}

func (e ModelEntry) Table() string       { return e.TableName }
func (e ModelEntry) DependsOn() []string { return e.Dependencies }

// GenerateMigration writes a create migration for the named model. An
// existing migration for its table is only replaced when Force is set, and
// keeps its file name.
func (s *Syncer) GenerateMigration(name string, opts MigrationOptions) (string, error) {
	m, err := s.Registry.Lookup(name)
	if err != nil {
		return "", err
	}

	dir := s.migrationDir(opts.Path)
	if err := requireDir(dir); err != nil {
		return "", err
	}

	seq := opts.Sequence
	if seq == nil {
		seq = migration.NewSequence(time.Now())
	}

	existing, err := migration.Existing(dir, m.Table())
	if err != nil {
		return "", err
	}
	if existing != "" && !opts.Force {
		return "", fmt.Errorf("%w: %s (use --force to overwrite)", ErrMigrationExists, existing)
	}

	return s.writeMigration(dir, existing, m, seq)
}

// GenerateMigrations writes create migrations for every registered model
// that passes the Only and Except filters, dependencies first unless sorting
// is disabled. Existing migrations are skipped without Force.
func (s *Syncer) GenerateMigrations(opts BulkOptions) (Result, error) {
	var res Result

	switch opts.Sort {
	case "", SortAuto, SortNone:
	default:
		return res, fmt.Errorf("invalid sort mode %q (expected %s or %s)", opts.Sort, SortAuto, SortNone)
	}

	if s.Config.ManifestPath == "" {
		if err := requireDir(s.Config.ModelPath); err != nil {
			return res, err
		}
	}
	dir := s.migrationDir(opts.Path)
	if err := requireDir(dir); err != nil {
		return res, err
	}

	seq := opts.Sequence
	if seq == nil {
		seq = migration.NewSequence(time.Now())
	}

	entries := s.uniqueTables(s.Entries(opts.Only, opts.Except), &res)
	if opts.Sort != SortNone {
		for _, cycle := range graph.New(entries).DetectCycles() {
			s.Reporter.Warn("dependency cycle: " + strings.Join(append(cycle, cycle[0]), " -> "))
		}
		entries = graph.Sort(entries)
	}

	for _, e := range entries {
		existing, err := migration.Existing(dir, e.TableName)
		if err != nil {
			return res, err
		}
		if existing != "" && !opts.Force {
			s.Reporter.Skipped(e.TableName, "migration exists (use --force to overwrite)")
			res.Skipped++
			continue
		}
		if _, err := s.writeMigration(dir, existing, e.Source, seq); err != nil {
			return res, err
		}
		res.Created++
	}
	return res, nil
}

// Entries builds a ModelEntry for every registered model that passes the
// filters, in registry order. Models that fail to construct are reported
// and left out.
func (s *Syncer) Entries(only, except []string) []ModelEntry {
	var entries []ModelEntry
	for _, name := range s.Registry.Names() {
		if len(only) > 0 && !slices.Contains(only, name) {
			continue
		}
		if slices.Contains(except, name) {
			continue
		}

		m, err := s.Registry.Lookup(name)
		if err != nil {
			s.Reporter.Warn(err.Error())
			continue
		}
		entries = append(entries, ModelEntry{
			Name:         name,
			TableName:    m.Table(),
			Dependencies: model.DependsOn(m),
			Source:       m,
		})
	}
	return entries
}

// uniqueTables keeps the first entry for each table. Later models mapping
// to the same table are warned about and counted as skipped.
func (s *Syncer) uniqueTables(entries []ModelEntry, res *Result) []ModelEntry {
	owner := make(map[string]string, len(entries))
	kept := entries[:0]
	for _, e := range entries {
		if first, ok := owner[e.TableName]; ok {
			s.Reporter.Warn(fmt.Sprintf("models %s and %s both map to table %s; skipping %s", first, e.Name, e.TableName, e.Name))
			res.Skipped++
			continue
		}
		owner[e.TableName] = e.Name
		kept = append(kept, e)
	}
	return kept
}

func (s *Syncer) writeMigration(dir, existing string, m model.Model, seq *migration.Sequence) (string, error) {
	table := m.Table()
	filename := existing
	if filename == "" {
		filename = migration.Filename(seq.Next(), table)
	}
	path := filepath.Join(dir, filename)

	sc := model.Inspect(m)
	out, err := codegen.RenderMigration(table, sc.Columns)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("writing migration %s: %w", path, err)
	}

	s.Logger.Debug("migration written", "model", m.Name(), "path", path, "summary", sc.Summary())
	s.Reporter.Created(path)
	return path, nil
}

func (s *Syncer) migrationDir(override string) string {
	if override != "" {
		return override
	}
	return s.Config.MigrationPath
}
