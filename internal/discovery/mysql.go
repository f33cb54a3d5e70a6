package discovery

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/schema"
	"github.com/modelsync/modelsync/internal/typemap"
)

// MySQL implements Discoverer for MySQL and MariaDB through
// information_schema. The DSN selects the database.
type MySQL struct {
	cfg     *config.DatabaseConfig
	typeMap *typemap.TypeMap
	db      *sql.DB
}

// NewMySQL creates a new MySQL discoverer.
func NewMySQL(cfg *config.DatabaseConfig, tm *typemap.TypeMap) *MySQL {
	return &MySQL{cfg: cfg, typeMap: tm}
}

func (m *MySQL) Connect(ctx context.Context) error {
	db, err := openSQL(ctx, "mysql", m.cfg)
	if err != nil {
		return err
	}
	m.db = db
	return nil
}

func (m *MySQL) Discover(ctx context.Context) ([]*schema.Schema, error) {
	if m.db == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	tables := make(map[string]*table)
	if err := m.discoverColumns(ctx, tables); err != nil {
		return nil, fmt.Errorf("discovering columns: %w", err)
	}
	if err := m.discoverForeignKeys(ctx, tables); err != nil {
		return nil, fmt.Errorf("discovering foreign keys: %w", err)
	}
	return sortedSchemas(tables, m.typeMap), nil
}

func (m *MySQL) Close() error {
	if m.db != nil {
		err := m.db.Close()
		m.db = nil
		return err
	}
	return nil
}

// discoverColumns reads every base table column with its full column type
// (bigint(20) unsigned, tinyint(1)) and primary key flag.
func (m *MySQL) discoverColumns(ctx context.Context, tables map[string]*table) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT c.table_name, c.column_name, c.column_type, c.column_key = 'PRI'
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = DATABASE()
		  AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		var col column
		if err := rows.Scan(&tableName, &col.name, &col.sqlType, &col.primaryKey); err != nil {
			return err
		}
		t, ok := tables[tableName]
		if !ok {
			t = &table{name: tableName}
			tables[tableName] = t
		}
		t.columns = append(t.columns, col)
	}
	return rows.Err()
}

func (m *MySQL) discoverForeignKeys(ctx context.Context, tables map[string]*table) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT table_name, constraint_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE()
		  AND referenced_table_name IS NOT NULL
		ORDER BY table_name, constraint_name, ordinal_position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		var fk foreignKey
		if err := rows.Scan(&tableName, &fk.constraint, &fk.column, &fk.refTable, &fk.refColumn); err != nil {
			return err
		}
		if t, ok := tables[tableName]; ok {
			t.foreignKeys = append(t.foreignKeys, fk)
		}
	}
	return rows.Err()
}
