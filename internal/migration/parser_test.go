package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelsync/modelsync/internal/schema"
)

const postsMigration = `<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    public function up(): void
    {
        Schema::create('posts', function (Blueprint $table) {
            $table->id();
            $table->foreignId('user_id')->constrained();
            $table->unsignedBigInteger('editor_id');
            $table->foreign('editor_id')->references('uuid')->on('admins');
            $table->string('title');
            $table->string('slug', 120);
            $table->text("body");
            $table->boolean('published');
            $table->json('meta');
            $table->timestamps();
            $table->softDeletes();
        });
    }
};
`

func TestParseColumns(t *testing.T) {
	s := Parse("posts", postsMigration)

	want := []schema.Column{
		{Name: "id", Type: schema.TypeID},
		{Name: "user_id", Type: schema.TypeForeignID},
		{Name: "editor_id", Type: schema.TypeUnsignedBigInteger},
		{Name: "title", Type: schema.TypeString},
		{Name: "body", Type: "text"},
		{Name: "published", Type: schema.TypeBoolean},
		{Name: "meta", Type: schema.TypeJSON},
		{Name: "timestamps", Type: schema.TypeTimestamps},
		{Name: "deleted_at", Type: schema.TypeSoftDeletes},
	}
	if len(s.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d: %v", len(want), len(s.Columns), s.ColumnNames())
	}
	for i, c := range want {
		if s.Columns[i].Name != c.Name || s.Columns[i].Type != c.Type {
			t.Errorf("column %d: got %+v, want %+v", i, s.Columns[i], c)
		}
	}
	if s.Has("slug") {
		t.Error("two-argument builder calls are not column definitions")
	}
}

func TestParseSkipsConstraintCalls(t *testing.T) {
	content := `
            $table->string('email');
            $table->unique('email');
            $table->unsignedBigInteger('team_id');
            $table->index('team_id');
            $table->foreign('team_id')->references('id')->on('teams');
            $table->dropColumn('legacy');
`
	s := Parse("users", content)

	if got := s.ColumnNames(); len(got) != 2 || got[0] != "email" || got[1] != "team_id" {
		t.Fatalf("expected only email and team_id, got %v", got)
	}
	if c, _ := s.Column("email"); c.Type != schema.TypeString {
		t.Errorf("unique() must not retype email, got %s", c.Type)
	}
	if c, _ := s.Column("team_id"); c.Type != schema.TypeUnsignedBigInteger {
		t.Errorf("index() and foreign() must not retype team_id, got %s", c.Type)
	}
	if len(s.ForeignKeys) != 1 || s.ForeignKeys[0].Table != "teams" {
		t.Errorf("expected the teams foreign key, got %+v", s.ForeignKeys)
	}
}

func TestParseForeignKeys(t *testing.T) {
	s := Parse("posts", postsMigration)

	if len(s.ForeignKeys) != 2 {
		t.Fatalf("expected 2 foreign keys, got %d", len(s.ForeignKeys))
	}
	if fk := s.ForeignKeys[0]; fk.Column != "user_id" || fk.Table != "users" || fk.OwnerKey != "id" {
		t.Errorf("unexpected inferred foreign key %+v", fk)
	}
	if fk := s.ForeignKeys[1]; fk.Column != "editor_id" || fk.Table != "admins" || fk.OwnerKey != "uuid" {
		t.Errorf("unexpected explicit foreign key %+v", fk)
	}
}

func TestParseConstrainedWithTable(t *testing.T) {
	src := `$table->foreignId('author_id')->constrained('users', 'id');`
	s := Parse("posts", src)
	if len(s.ForeignKeys) != 1 || s.ForeignKeys[0].Table != "users" {
		t.Fatalf("unexpected foreign keys %+v", s.ForeignKeys)
	}
}

func TestParseInferredPlural(t *testing.T) {
	s := Parse("products", `$table->foreignId('category_id')->constrained();`)
	if s.ForeignKeys[0].Table != "categories" {
		t.Errorf("expected categories, got %s", s.ForeignKeys[0].Table)
	}
}

func TestParseLastDefinitionWins(t *testing.T) {
	src := `
        $table->string('status');
        $table->string('name');
        $table->integer('status');
        $table->foreignId('owner_id')->constrained();
        $table->foreign('owner_id')->references('id')->on('accounts');
    `
	s := Parse("things", src)

	if got := strings.Join(s.ColumnNames(), ","); got != "status,name,owner_id" {
		t.Errorf("unexpected column order %s", got)
	}
	if c, _ := s.Column("status"); c.Type != schema.TypeInteger {
		t.Errorf("expected later definition to win, got %s", c.Type)
	}
	if len(s.ForeignKeys) != 1 || s.ForeignKeys[0].Table != "accounts" {
		t.Errorf("expected explicit form to win, got %+v", s.ForeignKeys)
	}
}

func TestParseIgnoresUnmatched(t *testing.T) {
	s := Parse("x", `$table->index(['a', 'b']); $table->decimal('price', 8, 2); Schema::dropIfExists('x');`)
	if !s.IsEmpty() {
		t.Errorf("expected no columns, got %v", s.ColumnNames())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindFirstInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024_02_01_000000_create_posts_table.php"), "b")
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_posts_table.php"), "a")
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_users_table.php"), "u")

	path, err := Find(dir, "posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "2024_01_01_000000_create_posts_table.php" {
		t.Errorf("unexpected match %s", path)
	}

	path, err = Find(dir, "comments")
	if err != nil || path != "" {
		t.Errorf("expected no match, got %q, %v", path, err)
	}
}

func TestFindRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog", "2024_01_01_000000_create_posts_table.php"), "a")

	path, err := Find(dir, "posts")
	if err != nil || path == "" {
		t.Fatalf("expected nested match, got %q, %v", path, err)
	}
}

func TestFindMissingDirectory(t *testing.T) {
	if _, err := Find(filepath.Join(t.TempDir(), "nope"), "posts"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestExistingIsNotRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "nested", "2024_01_01_000000_create_posts_table.php"), "a")

	name, err := Existing(dir, "posts")
	if err != nil || name != "" {
		t.Errorf("expected no top-level match, got %q, %v", name, err)
	}

	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_posts_table.php"), "a")
	name, err = Existing(dir, "posts")
	if err != nil || name != "2024_01_01_000000_create_posts_table.php" {
		t.Errorf("expected top-level match, got %q, %v", name, err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_users_table.php"), "")
	writeFile(t, filepath.Join(dir, "2024_01_02_000000_create_blog_posts_table.php"), "")
	writeFile(t, filepath.Join(dir, "2024_01_03_000000_add_flag_to_users.php"), "")

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Table != "users" || files[1].Table != "blog_posts" {
		t.Errorf("unexpected tables %+v", files)
	}
}

func TestTableFromFilename(t *testing.T) {
	table, ok := TableFromFilename("/x/2024_01_01_000000_create_order_items_table.php")
	if !ok || table != "order_items" {
		t.Errorf("unexpected %q, %v", table, ok)
	}
	if _, ok := TableFromFilename("2024_01_01_000000_add_flag.php"); ok {
		t.Error("expected no table for non-create migration")
	}
}

func TestExtractExcluded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_jobs_table.php"), postsMigration)

	e := &Extractor{Dir: dir, Excluded: func(table string) bool { return table == "jobs" }}
	s, err := e.Extract("jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() {
		t.Error("excluded table must produce an empty schema")
	}

	s, err = e.ExtractFile(filepath.Join(dir, "2024_01_01_000000_create_jobs_table.php"), "jobs")
	if err != nil || !s.IsEmpty() {
		t.Errorf("excluded table must produce an empty schema from a file too, got %v, %v", s.ColumnNames(), err)
	}
}

func TestExtractMissingMigration(t *testing.T) {
	e := &Extractor{Dir: t.TempDir()}
	s, err := e.Extract("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() || s.Table != "posts" {
		t.Errorf("expected empty posts schema, got %+v", s)
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_posts_table.php"), postsMigration)

	s, err := (&Extractor{Dir: dir}).Extract("posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Columns) != 9 || len(s.ForeignKeys) != 2 {
		t.Errorf("unexpected schema: %s", s.Summary())
	}
}

func TestSequenceIsStrictlyIncreasing(t *testing.T) {
	base := time.Date(2025, 3, 14, 9, 26, 59, 0, time.UTC)
	seq := NewSequence(base)

	first := seq.Next()
	second := seq.Next()
	third := seq.Next()

	if first != "2025_03_14_092659" {
		t.Errorf("unexpected first stamp %s", first)
	}
	if second != "2025_03_14_092700" {
		t.Errorf("unexpected second stamp %s", second)
	}
	if !(first < second && second < third) {
		t.Errorf("stamps not increasing: %s %s %s", first, second, third)
	}
	if Filename(first, "posts") != "2025_03_14_092659_create_posts_table.php" {
		t.Errorf("unexpected filename %s", Filename(first, "posts"))
	}
}
