package syncer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/modelsync/modelsync/internal/migration"
	"github.com/modelsync/modelsync/internal/naming"
)

// Watcher re-syncs models when create migrations change.
type Watcher struct {
	syncer  *Syncer
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching the migration directory. Events are only
// handled once Run is called.
func (s *Syncer) NewWatcher() (*Watcher, error) {
	if err := requireDir(s.Config.MigrationPath); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(s.Config.MigrationPath); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", s.Config.MigrationPath, err)
	}
	return &Watcher{syncer: s, watcher: w}, nil
}

// Watch re-syncs models until ctx is cancelled. The path of every model
// written is sent on synced when it is not nil.
func (s *Syncer) Watch(ctx context.Context, synced chan<- string) error {
	w, err := s.NewWatcher()
	if err != nil {
		return err
	}
	return w.Run(ctx, synced)
}

// Run handles events one at a time until ctx is cancelled, then closes the
// watcher.
func (w *Watcher) Run(ctx context.Context, synced chan<- string) error {
	defer w.watcher.Close()
	s := w.syncer

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			path, err := w.handle(ev.Name)
			if err != nil {
				s.Reporter.Warn(err.Error())
				continue
			}
			if path != "" && synced != nil {
				select {
				case synced <- path:
				case <-ctx.Done():
					return nil
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			s.Logger.Error("watch error", "error", err)
		}
	}
}

// handle re-syncs the model of one changed migration file and returns the
// model path, or "" when the file is not a create migration or yields no
// columns.
func (w *Watcher) handle(file string) (string, error) {
	s := w.syncer

	if filepath.Ext(file) != ".php" {
		return "", nil
	}
	table, ok := migration.TableFromFilename(file)
	if !ok {
		return "", nil
	}

	sc, err := s.extractor().ExtractFile(file, table)
	if err != nil {
		return "", err
	}
	if sc.IsEmpty() {
		s.Logger.Debug("no columns found", "table", table, "path", file)
		return "", nil
	}

	s.Logger.Info("migration changed", "path", file)
	return s.writeModel(naming.ModelForTable(table), sc)
}
