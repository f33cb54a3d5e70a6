package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// StampLayout is the sortable timestamp prefix of migration file names.
const StampLayout = "2006_01_02_150405"

var createTablePattern = regexp.MustCompile(`create_(.*?)_table\.php`)

// File is a create-table migration found on disk.
type File struct {
	Path  string
	Table string
}

// Filename returns the name for a new create-table migration.
func Filename(stamp, table string) string {
	return fmt.Sprintf("%s_create_%s_table.php", stamp, table)
}

func marker(table string) string {
	return "create_" + table + "_table.php"
}

// Find walks dir recursively in lexical order and returns the path of the
// first migration whose name contains create_<table>_table.php. It returns
// "" without error when none matches.
func Find(dir, table string) (string, error) {
	var found string
	want := marker(table)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(d.Name(), want) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching migrations in %s: %w", dir, err)
	}
	return found, nil
}

// Existing returns the name of a create_<table>_table migration directly
// inside dir (no recursion), or "" if there is none. A missing directory
// counts as empty.
func Existing(dir, table string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("listing migrations in %s: %w", dir, err)
	}
	want := marker(table)
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), want) {
			return e.Name(), nil
		}
	}
	return "", nil
}

// Discover lists every create_*_table.php migration under dir in lexical
// walk order, deriving the table name from the file name.
func Discover(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := createTablePattern.FindStringSubmatch(d.Name())
		if m == nil || m[1] == "" {
			return nil
		}
		files = append(files, File{Path: path, Table: m[1]})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering migrations in %s: %w", dir, err)
	}
	return files, nil
}

// TableFromFilename extracts the table name from a migration file name.
func TableFromFilename(name string) (string, bool) {
	m := createTablePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Sequence hands out strictly increasing timestamp prefixes for one run,
// so files generated within the same second still sort in creation order.
type Sequence struct {
	base   time.Time
	offset int
}

// NewSequence starts a sequence at base.
func NewSequence(base time.Time) *Sequence {
	return &Sequence{base: base}
}

// Next returns the next stamp, one second after the previous one.
func (s *Sequence) Next() string {
	stamp := s.base.Add(time.Duration(s.offset) * time.Second).Format(StampLayout)
	s.offset++
	return stamp
}
