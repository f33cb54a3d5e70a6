//go:build integration

package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelsync/modelsync/internal/config"
	"github.com/modelsync/modelsync/internal/discovery"
	"github.com/modelsync/modelsync/internal/migration"
	"github.com/modelsync/modelsync/internal/model"
	"github.com/modelsync/modelsync/internal/syncer"
)

const (
	userSource = `<?php

namespace App\Models;

use Illuminate\Database\Eloquent\Model;

class User extends Model
{
    protected $fillable = ['name', 'email', 'password'];
}
`
	postSource = `<?php

namespace App\Models;

use Illuminate\Database\Eloquent\Model;

class Post extends Model
{
    protected $fillable = ['title', 'user_id', 'published'];

    protected $casts = ['published' => 'boolean'];

    public function user()
    {
        return $this->belongsTo(User::class);
    }
}
`
)

// TestModelMigrationRoundTrip generates migrations from models, regenerates
// the models from those migrations and checks that the regenerated models
// yield the same migrations.
func TestModelMigrationRoundTrip(t *testing.T) {
	cfg := project(t)
	for name, src := range map[string]string{"User": userSource, "Post": postSource} {
		if err := os.WriteFile(filepath.Join(cfg.ModelPath, name+".php"), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	generate := func(force bool) map[string]string {
		t.Helper()
		r := model.NewRegistry()
		if err := r.LoadDir(cfg.ModelPath, nil); err != nil {
			t.Fatal(err)
		}
		s := syncer.New(cfg, r, nil, nil)
		seq := migration.NewSequence(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
		if _, err := s.GenerateMigrations(syncer.BulkOptions{Force: force, Sequence: seq}); err != nil {
			t.Fatalf("GenerateMigrations: %v", err)
		}

		out := make(map[string]string)
		entries, err := os.ReadDir(cfg.MigrationPath)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			out[e.Name()] = readFile(t, filepath.Join(cfg.MigrationPath, e.Name()))
		}
		return out
	}

	first := generate(false)
	if len(first) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(first))
	}
	if _, ok := first["2025_03_01_090000_create_users_table.php"]; !ok {
		t.Errorf("users must be created first: %v", first)
	}

	for _, name := range []string{"User", "Post"} {
		if err := os.Remove(filepath.Join(cfg.ModelPath, name+".php")); err != nil {
			t.Fatal(err)
		}
	}
	res, err := syncer.New(cfg, nil, nil, nil).SyncAllModels()
	if err != nil {
		t.Fatalf("SyncAllModels: %v", err)
	}
	if res.Synced != 2 {
		t.Fatalf("expected 2 models, got %+v", res)
	}

	post := readFile(t, filepath.Join(cfg.ModelPath, "Post.php"))
	if !strings.Contains(post, "return $this->belongsTo(\\App\\Models\\User::class, 'user_id', 'id');") {
		t.Errorf("regenerated model lost its relation:\n%s", post)
	}

	second := generate(true)
	for name, body := range first {
		if second[name] != body {
			t.Errorf("%s differs after round trip:\n%s\n---\n%s", name, body, second[name])
		}
	}
}

func TestSyncFromPostgres(t *testing.T) {
	dsn := pgDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect for setup: %v", err)
	}
	defer pool.Close()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS e2e_articles CASCADE`,
		`DROP TABLE IF EXISTS e2e_writers CASCADE`,
		`CREATE TABLE e2e_writers (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255),
			password VARCHAR(255),
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE e2e_articles (
			id BIGSERIAL PRIMARY KEY,
			e2e_writer_id BIGINT REFERENCES e2e_writers(id),
			body TEXT,
			draft BOOLEAN NOT NULL DEFAULT true,
			deleted_at TIMESTAMP
		)`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DROP TABLE IF EXISTS e2e_articles, e2e_writers CASCADE`)
	})

	cfg := project(t)
	cfg.Database = config.DatabaseConfig{Driver: "pgsql", DSN: dsn, Schema: "public", ConnectTimeout: 5}
	article := syncFromDatabase(t, cfg, "E2eArticle")

	for _, want := range []string{
		"'e2e_writer_id',",
		"'draft' => 'boolean',",
		"return $this->belongsTo(\\App\\Models\\E2eWriter::class, 'e2e_writer_id', 'id');",
	} {
		if !strings.Contains(article, want) {
			t.Errorf("missing %q in:\n%s", want, article)
		}
	}
	if strings.Contains(article, "'deleted_at'") {
		t.Errorf("deleted_at is a soft delete marker, not a field:\n%s", article)
	}
}

func TestSyncFromMySQL(t *testing.T) {
	dsn := mysqlDSN(t)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS e2e_articles`,
		`DROP TABLE IF EXISTS e2e_writers`,
		`CREATE TABLE e2e_writers (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255)
		)`,
		`CREATE TABLE e2e_articles (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			e2e_writer_id BIGINT UNSIGNED,
			draft TINYINT(1) NOT NULL DEFAULT 1,
			FOREIGN KEY (e2e_writer_id) REFERENCES e2e_writers(id)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	t.Cleanup(func() {
		db.Exec(`DROP TABLE IF EXISTS e2e_articles`)
		db.Exec(`DROP TABLE IF EXISTS e2e_writers`)
	})

	cfg := project(t)
	cfg.Database = config.DatabaseConfig{Driver: "mysql", DSN: dsn, ConnectTimeout: 5}
	article := syncFromDatabase(t, cfg, "E2eArticle")

	for _, want := range []string{
		"'draft' => 'boolean',",
		"return $this->belongsTo(\\App\\Models\\E2eWriter::class, 'e2e_writer_id', 'id');",
	} {
		if !strings.Contains(article, want) {
			t.Errorf("missing %q in:\n%s", want, article)
		}
	}
}

func syncFromDatabase(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	ctx := context.Background()

	d, err := discovery.New(&cfg.Database, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Connect(ctx); err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer d.Close()

	path, err := syncer.New(cfg, nil, nil, nil).SyncModelFromDatabase(ctx, d, name)
	if err != nil {
		t.Fatalf("SyncModelFromDatabase: %v", err)
	}
	return readFile(t, path)
}
