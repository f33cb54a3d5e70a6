package discovery

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/schema"
	"github.com/modelsync/modelsync/internal/typemap"
)

// SQLite implements Discoverer for SQLite database files. The DSN is the
// file path.
type SQLite struct {
	cfg     *config.DatabaseConfig
	typeMap *typemap.TypeMap
	db      *sql.DB
}

// NewSQLite creates a new SQLite discoverer.
func NewSQLite(cfg *config.DatabaseConfig, tm *typemap.TypeMap) *SQLite {
	return &SQLite{cfg: cfg, typeMap: tm}
}

func (s *SQLite) Connect(ctx context.Context) error {
	db, err := openSQL(ctx, "sqlite", s.cfg)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *SQLite) Discover(ctx context.Context) ([]*schema.Schema, error) {
	if s.db == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}

	tables := make(map[string]*table, len(names))
	for _, name := range names {
		t := &table{name: name}
		if err := s.discoverColumns(ctx, t); err != nil {
			return nil, fmt.Errorf("query columns for %s: %w", name, err)
		}
		if err := s.discoverForeignKeys(ctx, t); err != nil {
			return nil, fmt.Errorf("query foreign keys for %s: %w", name, err)
		}
		tables[name] = t
	}
	return sortedSchemas(tables, s.typeMap), nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *SQLite) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLite) discoverColumns(ctx context.Context, t *table) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(t.name)))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		t.columns = append(t.columns, column{name: name, sqlType: ctype, primaryKey: pk != 0})
	}
	return rows.Err()
}

func (s *SQLite) discoverForeignKeys(ctx context.Context, t *table) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(t.name)))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, seq int
		var refTable, from string
		var to, onUpdate, onDelete, match sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		t.foreignKeys = append(t.foreignKeys, foreignKey{
			constraint: strconv.Itoa(id),
			column:     from,
			refTable:   refTable,
			refColumn:  to.String,
		})
	}
	return rows.Err()
}
