package model

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelsync/modelsync/internal/naming"
)

// ErrNotFound is returned when a model identifier is not registered.
var ErrNotFound = errors.New("model not found")

// Factory constructs a model instance.
type Factory func() (Model, error)

// Registry maps bare model identifiers to factories.
type Registry struct {
	factories map[string]Factory
	tables    map[string]string
	paths     map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		tables:    make(map[string]string),
		paths:     make(map[string]string),
	}
}

// Register adds or replaces the factory for name. Namespace prefixes are
// dropped from name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[naming.Basename(name)] = f
}

// RegisterDefinition registers a fixed definition and remembers its table
// for related-class resolution.
func (r *Registry) RegisterDefinition(d *Definition) {
	name := naming.Basename(d.Class)
	r.tables[name] = d.TableName
	if d.Path != "" {
		r.paths[name] = d.Path
	}
	r.Register(name, func() (Model, error) { return d, nil })
}

// Lookup constructs the named model.
func (r *Registry) Lookup(name string) (Model, error) {
	f, ok := r.factories[naming.Basename(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	m, err := f()
	if err != nil {
		return nil, fmt.Errorf("constructing model %s: %w", name, err)
	}
	return m, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[naming.Basename(name)]
	return ok
}

// Names returns the registered identifiers sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path returns the source file a model was scanned from, or "".
func (r *Registry) Path(name string) string {
	return r.paths[naming.Basename(name)]
}

// TableFor resolves the table of a related class: the registered table if
// the class is known, otherwise the conventional plural.
func (r *Registry) TableFor(class string) string {
	name := naming.Basename(class)
	if table, ok := r.tables[name]; ok {
		return table
	}
	return naming.TableForModel(name)
}

// LoadDir scans every *.php file under dir, in lexical walk order, and
// registers the classes found. Files without a class declaration are
// skipped.
func (r *Registry) LoadDir(dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning models in %s: %w", dir, err)
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".php") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading model %s: %w", path, err)
		}
		def, err := ScanSource(src, r.TableFor)
		if err != nil {
			logger.Debug("skipping model source", "path", path, "error", err)
			return nil
		}
		def.Path = path
		r.RegisterDefinition(def)
		logger.Debug("registered model", "class", def.Class, "table", def.TableName, "path", path)
		return nil
	})
}
