package discovery_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/discovery"
	"github.com/modelsync/modelsync/internal/schema"
)

// pgTestConfig returns a DatabaseConfig pointing at MODELSYNC_TEST_PG_DSN,
// skipping the test when it is unset or unreachable.
func pgTestConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	dsn := os.Getenv("MODELSYNC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("skipping: MODELSYNC_TEST_PG_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skipping: cannot connect to PostgreSQL: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping: cannot ping PostgreSQL: %v", err)
	}
	pool.Close()

	return &config.DatabaseConfig{Driver: "pgsql", DSN: dsn, Schema: "public", ConnectTimeout: 5}
}

func setupTestSchema(t *testing.T, cfg *config.DatabaseConfig) {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		t.Fatalf("connect for setup: %v", err)
	}
	defer pool.Close()

	ddl := []string{
		`DROP TABLE IF EXISTS ms_comments CASCADE`,
		`DROP TABLE IF EXISTS ms_authors CASCADE`,
		`CREATE TABLE ms_authors (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE ms_comments (
			id BIGSERIAL PRIMARY KEY,
			ms_author_id BIGINT NOT NULL REFERENCES ms_authors(id),
			body TEXT,
			meta JSON,
			deleted_at TIMESTAMP
		)`,
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup DDL %q: %v", stmt, err)
		}
	}
	t.Cleanup(func() {
		cleanup, err := pgxpool.New(context.Background(), cfg.DSN)
		if err != nil {
			return
		}
		defer cleanup.Close()
		cleanup.Exec(context.Background(), `DROP TABLE IF EXISTS ms_comments, ms_authors CASCADE`)
	})
}

func TestPostgresDiscover(t *testing.T) {
	cfg := pgTestConfig(t)
	setupTestSchema(t, cfg)

	d, err := discovery.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer d.Close()

	schemas, err := d.Discover(ctx)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	byTable := make(map[string]*schema.Schema)
	for _, s := range schemas {
		byTable[s.Table] = s
	}

	comments, ok := byTable["ms_comments"]
	if !ok {
		t.Fatal("ms_comments not discovered")
	}
	fk, _ := comments.Column("ms_author_id")
	if fk.Type != schema.TypeForeignID || fk.Foreign == nil || fk.Foreign.On != "ms_authors" {
		t.Errorf("unexpected foreign key column %+v", fk)
	}
	if c, _ := comments.Column("deleted_at"); c.Type != schema.TypeSoftDeletes {
		t.Errorf("expected softDeletes, got %s", c.Type)
	}
	if c, _ := comments.Column("meta"); c.Type != schema.TypeJSON {
		t.Errorf("expected json, got %s", c.Type)
	}

	authors := byTable["ms_authors"]
	if c, _ := authors.Column("id"); c.Type != schema.TypeID {
		t.Errorf("expected id shorthand, got %s", c.Type)
	}
	if c, _ := authors.Column("active"); c.Type != schema.TypeBoolean {
		t.Errorf("expected boolean, got %s", c.Type)
	}
}
