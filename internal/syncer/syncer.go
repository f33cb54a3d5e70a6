// Package syncer coordinates extraction, inference and rendering for single
// and bulk model and migration generation.
package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelsync/modelsync/internal/codegen"
	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/migration"
	"github.com/modelsync/modelsync/internal/model"
	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/relation"
	"github.com/modelsync/modelsync/internal/schema"
)

var (
	// ErrMigrationExists is returned when a create migration for the table
	// is already present and overwriting was not requested.
	ErrMigrationExists = errors.New("migration already exists")

	// ErrMissingDirectory is returned when a required directory is absent.
	ErrMissingDirectory = errors.New("directory not found")
)

// Reporter receives user-facing notices.
type Reporter interface {
	Synced(model, path string)
	Created(path string)
	Skipped(subject, reason string)
	Warn(msg string)
}

// Result counts the outcome of a bulk run.
type Result struct {
	Synced  int
	Created int
	Skipped int
}

// Syncer runs sync and generation flows against one configuration.
type Syncer struct {
	Config   *config.Config
	Registry *model.Registry
	Reporter Reporter
	Logger   *slog.Logger
}

// New creates a Syncer. A nil reporter discards notices and a nil logger
// discards log output.
func New(cfg *config.Config, registry *model.Registry, reporter Reporter, logger *slog.Logger) *Syncer {
	if registry == nil {
		registry = model.NewRegistry()
	}
	if reporter == nil {
		reporter = discardReporter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{Config: cfg, Registry: registry, Reporter: reporter, Logger: logger}
}

func (s *Syncer) extractor() *migration.Extractor {
	return &migration.Extractor{
		Dir:      s.Config.MigrationPath,
		Excluded: s.Config.IsExcluded,
		Logger:   s.Logger,
	}
}

// SyncModel regenerates one model from its create migration. A missing
// migration still produces a model with no fields.
func (s *Syncer) SyncModel(name string) (string, error) {
	if name == "" {
		return "", errors.New("model name is required")
	}
	name = naming.Basename(name)

	if err := requireDir(s.Config.MigrationPath); err != nil {
		return "", err
	}

	table := naming.TableForModel(name)
	sc, err := s.extractor().Extract(table)
	if err != nil {
		return "", err
	}
	return s.writeModel(name, sc)
}

// SyncAllModels regenerates a model for every create migration in the
// migration directory. Tables without columns are skipped.
func (s *Syncer) SyncAllModels() (Result, error) {
	var res Result
	if err := requireDir(s.Config.MigrationPath); err != nil {
		return res, err
	}

	files, err := migration.Discover(s.Config.MigrationPath)
	if err != nil {
		return res, err
	}

	ex := s.extractor()
	seen := make(map[string]bool)
	for _, f := range files {
		if seen[f.Table] {
			s.Logger.Debug("ignoring additional create migration", "table", f.Table, "path", f.Path)
			continue
		}
		seen[f.Table] = true

		sc, err := ex.ExtractFile(f.Path, f.Table)
		if err != nil {
			return res, err
		}
		if sc.IsEmpty() {
			s.Reporter.Skipped(f.Table, "no columns found")
			res.Skipped++
			continue
		}
		if _, err := s.writeModel(naming.ModelForTable(f.Table), sc); err != nil {
			return res, err
		}
		res.Synced++
	}
	return res, nil
}

// writeModel renders and writes the model for name from sc, carrying over
// the hand-written parts of an existing file. A model scanned from a
// subdirectory is written back in place.
func (s *Syncer) writeModel(name string, sc *schema.Schema) (string, error) {
	if err := sc.Validate(); err != nil {
		s.Reporter.Warn(err.Error() + "; dropping them")
		sc = sc.WithoutDanglingForeignKeys()
	}

	path := s.modelPath(name)
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading model %s: %w", path, err)
	}

	out, err := codegen.RenderModel(codegen.ModelInput{
		Name:      name,
		Namespace: s.Config.ModelNamespace,
		Schema:    sc,
		Relations: relation.Infer(sc, s.Config.Overrides(), s.Config.ModelNamespace),
		IsIgnored: s.Config.IsIgnored,
		IsHashed:  s.Config.IsHashed,
		Hidden:    s.Config.Hidden,
	}, existing)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating model directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("writing model %s: %w", path, err)
	}

	s.Logger.Debug("model written", "model", name, "path", path, "summary", sc.Summary())
	s.Reporter.Synced(name, path)
	return path, nil
}

// modelPath is the file a model was scanned from, or <model_path>/<name>.php
// for models not in the registry.
func (s *Syncer) modelPath(name string) string {
	if p := s.Registry.Path(name); p != "" {
		return p
	}
	return filepath.Join(s.Config.ModelPath, name+".php")
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
		}
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrMissingDirectory, dir)
	}
	return nil
}

type discardReporter struct{}

func (discardReporter) Synced(string, string)  {}
func (discardReporter) Created(string)         {}
func (discardReporter) Skipped(string, string) {}
func (discardReporter) Warn(string)            {}
