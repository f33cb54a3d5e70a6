//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modelsync/modelsync/internal/config"
)

func pgDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MODELSYNC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("skipping: MODELSYNC_TEST_PG_DSN not set")
	}
	return dsn
}

func mysqlDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MODELSYNC_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skipping: MODELSYNC_TEST_MYSQL_DSN not set")
	}
	return dsn
}

// project creates an empty Laravel-style layout and a config pointing at it.
func project(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.ModelPath = filepath.Join(root, "app", "Models")
	cfg.MigrationPath = filepath.Join(root, "database", "migrations")
	for _, dir := range []string{cfg.ModelPath, cfg.MigrationPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
