package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSchema() *Schema {
	s := New("posts")
	s.Set(Column{Name: "id", Type: TypeID})
	s.Set(Column{Name: "user_id", Type: TypeForeignID, Foreign: &ForeignRef{On: "users", ForeignKey: "user_id", OwnerKey: "id"}})
	s.Set(Column{Name: "title", Type: TypeString})
	s.SetForeignKey(ForeignKey{Column: "user_id", Table: "users", OwnerKey: "id"})
	return s
}

func TestSetOverwritesInPlace(t *testing.T) {
	s := New("posts")
	s.Set(Column{Name: "title", Type: TypeString})
	s.Set(Column{Name: "body", Type: "text"})
	s.Set(Column{Name: "title", Type: "text"})

	if len(s.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(s.Columns))
	}
	if s.Columns[0].Name != "title" || s.Columns[0].Type != "text" {
		t.Errorf("expected title overwritten in first position, got %+v", s.Columns[0])
	}
}

func TestPrepend(t *testing.T) {
	s := New("posts")
	s.Set(Column{Name: "title", Type: TypeString})
	s.Prepend(Column{Name: "id", Type: TypeID})
	s.Prepend(Column{Name: "id", Type: TypeID})

	if got := strings.Join(s.ColumnNames(), ","); got != "id,title" {
		t.Errorf("unexpected columns %s", got)
	}
}

func TestSetForeignKeyLastWins(t *testing.T) {
	s := New("posts")
	s.SetForeignKey(ForeignKey{Column: "user_id", Table: "users"})
	s.SetForeignKey(ForeignKey{Column: "editor_id", Table: "users"})
	s.SetForeignKey(ForeignKey{Column: "user_id", Table: "admins"})

	if len(s.ForeignKeys) != 2 {
		t.Fatalf("expected 2 foreign keys, got %d", len(s.ForeignKeys))
	}
	if s.ForeignKeys[0].Table != "admins" {
		t.Errorf("expected last definition to win, got %s", s.ForeignKeys[0].Table)
	}
	if deps := s.DependsOn(); len(deps) != 2 || deps[0] != "admins" || deps[1] != "users" {
		t.Errorf("unexpected dependencies %v", deps)
	}
}

func TestValidate(t *testing.T) {
	s := testSchema()
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.SetForeignKey(ForeignKey{Column: "category_id", Table: "categories"})
	err := s.Validate()
	var dangling *DanglingForeignKeyError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingForeignKeyError, got %v", err)
	}
	if len(dangling.Columns) != 1 || dangling.Columns[0] != "category_id" {
		t.Errorf("unexpected dangling columns %v", dangling.Columns)
	}

	cleaned := s.WithoutDanglingForeignKeys()
	if len(cleaned.ForeignKeys) != 1 {
		t.Errorf("expected 1 foreign key after cleanup, got %d", len(cleaned.ForeignKeys))
	}
	if len(s.ForeignKeys) != 2 {
		t.Error("cleanup must not modify the original schema")
	}
}

func TestIsMarker(t *testing.T) {
	for _, typ := range []ColumnType{TypeID, TypeSoftDeletes, TypeTimestamps} {
		if !typ.IsMarker() {
			t.Errorf("%s should be a marker", typ)
		}
	}
	if TypeString.IsMarker() || TypeForeignID.IsMarker() {
		t.Error("string and foreignId are not markers")
	}
}

func TestWriteYAML(t *testing.T) {
	s := testSchema()
	path := filepath.Join(t.TempDir(), "schemas", "posts.yaml")
	if err := s.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "# Table posts: 3 columns") {
		t.Errorf("expected summary header, got:\n%s", got)
	}
	for _, want := range []string{"table: posts", "foreign_key: user_id"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestSummary(t *testing.T) {
	got := testSchema().Summary()
	want := "Table posts: 3 columns, 1 foreign keys, 1 constrained identifiers"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
