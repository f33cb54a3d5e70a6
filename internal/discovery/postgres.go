package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/schema"
	"github.com/modelsync/modelsync/internal/typemap"
)

// Postgres implements Discoverer for PostgreSQL databases.
type Postgres struct {
	cfg     *config.DatabaseConfig
	typeMap *typemap.TypeMap
	pool    *pgxpool.Pool
	schema  string // pg schema to discover, defaults to "public"
}

// NewPostgres creates a new PostgreSQL discoverer.
func NewPostgres(cfg *config.DatabaseConfig, tm *typemap.TypeMap) *Postgres {
	s := cfg.Schema
	if s == "" {
		s = "public"
	}
	return &Postgres{cfg: cfg, typeMap: tm, schema: s}
}

func (p *Postgres) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.cfg.DSN)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	// Discovery runs its queries one after another.
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(p.cfg))
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *Postgres) Discover(ctx context.Context) ([]*schema.Schema, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	tables, err := p.discoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering tables: %w", err)
	}

	if err := p.discoverColumns(ctx, tables); err != nil {
		return nil, fmt.Errorf("discovering columns: %w", err)
	}

	if err := p.discoverPrimaryKeys(ctx, tables); err != nil {
		return nil, fmt.Errorf("discovering primary keys: %w", err)
	}

	if err := p.discoverForeignKeys(ctx, tables); err != nil {
		return nil, fmt.Errorf("discovering foreign keys: %w", err)
	}

	return sortedSchemas(tables, p.typeMap), nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// discoverTables lists all ordinary tables in the schema.
func (p *Postgres) discoverTables(ctx context.Context) (map[string]*table, error) {
	query := `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind = 'r'
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]*table)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables[name] = &table{name: name}
	}
	return tables, rows.Err()
}

// discoverColumns fetches all columns for all tables in the schema.
func (p *Postgres) discoverColumns(ctx context.Context, tables map[string]*table) error {
	query := `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = ANY($2)
		ORDER BY table_name, ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, tableNames(tables))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, colName, dataType string
		if err := rows.Scan(&tableName, &colName, &dataType); err != nil {
			return err
		}
		if t, ok := tables[tableName]; ok {
			t.columns = append(t.columns, column{name: colName, sqlType: dataType})
		}
	}
	return rows.Err()
}

// discoverPrimaryKeys marks primary key columns.
func (p *Postgres) discoverPrimaryKeys(ctx context.Context, tables map[string]*table) error {
	query := `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = ANY($2)
		ORDER BY tc.table_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, tableNames(tables))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, colName string
		if err := rows.Scan(&tableName, &colName); err != nil {
			return err
		}
		if t, ok := tables[tableName]; ok {
			t.markPrimaryKey(colName)
		}
	}
	return rows.Err()
}

// discoverForeignKeys fetches foreign key relationships including composite keys.
func (p *Postgres) discoverForeignKeys(ctx context.Context, tables map[string]*table) error {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		  AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = ANY($2)
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, tableNames(tables))
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

func (t *table) markPrimaryKey(name string) {
	for i := range t.columns {
		if t.columns[i].name == name {
			t.columns[i].primaryKey = true
		}
	}
}

func tableNames(tables map[string]*table) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	return names
}

func connectTimeout(cfg *config.DatabaseConfig) time.Duration {
	if cfg.ConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.ConnectTimeout) * time.Second
}
