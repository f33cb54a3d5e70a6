// Package codegen renders migration files and model classes.
package codegen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/modelsync/modelsync/internal/relation"
	"github.com/modelsync/modelsync/internal/schema"
)

var migrationTmpl = template.Must(template.New("migration").Parse(migrationTemplate))

type migrationData struct {
	Table string
	Lines []string
}

// RenderMigration produces a create-table migration for table with one
// builder line per column, in column order. Names are substituted
// literally.
func RenderMigration(table string, columns []schema.Column) (string, error) {
	var buf bytes.Buffer
	data := migrationData{Table: table, Lines: migrationLines(columns)}
	if err := migrationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering migration for %s: %w", table, err)
	}
	return buf.String(), nil
}

// migrationLines picks the builder line for each column. A created_at and
// updated_at pair of timestamp columns collapses into a single timestamps()
// line at the position of the first one.
func migrationLines(columns []schema.Column) []string {
	pair := hasTimestampPair(columns)
	timestamps := false

	lines := make([]string, 0, len(columns))
	for _, c := range columns {
		if pair && (c.Name == "created_at" || c.Name == "updated_at") {
			if !timestamps {
				lines = append(lines, "$table->timestamps();")
				timestamps = true
			}
			continue
		}

		switch {
		case c.Type == schema.TypeID:
			lines = append(lines, "$table->id();")
		case c.Type == schema.TypeSoftDeletes:
			lines = append(lines, "$table->softDeletes();")
		case c.Type == schema.TypeTimestamps:
			if !timestamps {
				lines = append(lines, "$table->timestamps();")
				timestamps = true
			}
		case c.Foreign != nil:
			owner := c.Foreign.OwnerKey
			if owner == "" {
				owner = relation.DefaultOwnerKey
			}
			lines = append(lines, fmt.Sprintf("$table->foreignId('%s')->constrained('%s', '%s');",
				c.Name, c.Foreign.On, owner))
		case c.Type == schema.TypeForeignID:
			lines = append(lines, fmt.Sprintf("$table->foreignId('%s')->constrained();", c.Name))
		case c.Name == "email":
			lines = append(lines, fmt.Sprintf("$table->%s('%s')->unique();", c.Type, c.Name))
		case c.Type == schema.TypeBoolean:
			lines = append(lines, fmt.Sprintf("$table->%s('%s')->default(false);", c.Type, c.Name))
		default:
			lines = append(lines, fmt.Sprintf("$table->%s('%s')->nullable();", c.Type, c.Name))
		}
	}
	return lines
}

func hasTimestampPair(columns []schema.Column) bool {
	var created, updated bool
	for _, c := range columns {
		switch {
		case c.Name == "created_at" && c.Type == schema.TypeTimestamp:
			created = true
		case c.Name == "updated_at" && c.Type == schema.TypeTimestamp:
			updated = true
		}
	}
	return created && updated
}

const migrationTemplate = `<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    public function up(): void
    {
        Schema::create('{{.Table}}', function (Blueprint $table) {
{{- range .Lines}}
            {{.}}
{{- end}}
        });
    }

    public function down(): void
    {
        Schema::dropIfExists('{{.Table}}');
    }
};
`
