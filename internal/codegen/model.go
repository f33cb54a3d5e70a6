package codegen

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/modelsync/modelsync/internal/relation"
	"github.com/modelsync/modelsync/internal/schema"
)

const (
	baseModelImport   = `use Illuminate\Database\Eloquent\Model;`
	softDeletesImport = `use Illuminate\Database\Eloquent\SoftDeletes;`
	softDeletesTrait  = "use SoftDeletes;"
)

// ModelInput is everything the model renderer needs apart from the
// existing file.
type ModelInput struct {
	Name      string
	Namespace string
	Schema    *schema.Schema
	Relations []relation.Descriptor

	// IsIgnored keeps a column out of $fillable and $casts; IsHashed gives
	// it the hashed cast. Either may be nil.
	IsIgnored func(column string) bool
	IsHashed  func(column string) bool
	Hidden    []string
}

// Preserved holds the hand-written fragments kept from an existing model.
type Preserved struct {
	Imports []string // top-level use statements before the class line
	Class   string   // class declaration without the opening brace
	Traits  []string // use statements inside the class body
}

var classLinePattern = regexp.MustCompile(`^(?:(?:final|abstract|readonly)\s+)*class\s`)

// Preserve extracts imports, the class line and trait uses from an existing
// model source.
func Preserve(existing []byte) Preserved {
	var p Preserved
	inClass := false

	sc := bufio.NewScanner(bytes.NewReader(existing))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if !inClass && classLinePattern.MatchString(line) {
			p.Class = strings.TrimRight(line, "{ ")
			inClass = true
			continue
		}
		if !strings.HasPrefix(line, "use ") || !strings.HasSuffix(line, ";") {
			continue
		}
		if inClass {
			p.Traits = append(p.Traits, line)
		} else {
			p.Imports = append(p.Imports, line)
		}
	}
	return p
}

// Cast is one entry of the rendered $casts array.
type Cast struct {
	Column string
	Type   string
}

// Casts derives the cast map of a schema. ignored columns get none and
// hashed columns always get "hashed".
func Casts(s *schema.Schema, ignored, hashed func(string) bool) []Cast {
	foreign := make(map[string]bool, len(s.ForeignKeys))
	for _, fk := range s.ForeignKeys {
		foreign[fk.Column] = true
	}

	var casts []Cast
	for _, c := range s.Columns {
		if matches(ignored, c.Name) {
			continue
		}
		var cast string
		switch c.Type {
		case schema.TypeTimestamp, "datetime":
			cast = "datetime"
		case schema.TypeJSON:
			cast = "array"
		case schema.TypeBoolean:
			cast = "boolean"
		case schema.TypeInteger, "bigInteger", schema.TypeUnsignedBigInteger, "unsignedInteger":
			if !foreign[c.Name] {
				cast = "integer"
			}
		}
		if matches(hashed, c.Name) {
			cast = "hashed"
		}
		if cast != "" {
			casts = append(casts, Cast{Column: c.Name, Type: cast})
		}
	}
	return casts
}

// Fillable lists the mass-assignable columns: every column except ignored
// ones and framework-managed markers.
func Fillable(s *schema.Schema, ignored func(string) bool) []string {
	var fields []string
	for _, c := range s.Columns {
		if c.Type.IsMarker() || matches(ignored, c.Name) {
			continue
		}
		fields = append(fields, c.Name)
	}
	return fields
}

// Hidden keeps the configured hidden fields present in the schema, in
// configured order.
func Hidden(s *schema.Schema, hidden []string) []string {
	var fields []string
	for _, h := range hidden {
		if s.Has(h) {
			fields = append(fields, h)
		}
	}
	return fields
}

var modelTmpl = template.Must(template.New("model").Funcs(template.FuncMap{
	"quote": func(s string) string { return "'" + s + "'" },
}).Parse(modelTemplate))

type modelData struct {
	Namespace string
	Imports   []string
	Class     string
	Traits    []string
	Fillable  []string
	Casts     []Cast
	Hidden    []string
	Relations []relation.Descriptor
}

// RenderModel assembles a model class. existing is the current file content,
// or nil when the model does not exist yet; its imports, class line and
// traits are carried over, everything else is regenerated.
func RenderModel(in ModelInput, existing []byte) (string, error) {
	data := modelData{
		Namespace: strings.Trim(in.Namespace, `\`),
		Class:     "class " + in.Name + " extends Model",
		Fillable:  Fillable(in.Schema, in.IsIgnored),
		Casts:     Casts(in.Schema, in.IsIgnored, in.IsHashed),
		Hidden:    Hidden(in.Schema, in.Hidden),
		Relations: in.Relations,
	}

	if existing == nil {
		data.Imports = append(data.Imports, baseModelImport)
	} else {
		p := Preserve(existing)
		data.Imports = append(data.Imports, p.Imports...)
		data.Traits = p.Traits
		if p.Class != "" {
			data.Class = p.Class
		}
	}

	if usesSoftDeletes(in.Schema) && !mentions(data.Imports, "SoftDeletes") && !mentions(data.Traits, "SoftDeletes") {
		data.Imports = append(data.Imports, softDeletesImport)
		data.Traits = append(data.Traits, softDeletesTrait)
	}

	var buf bytes.Buffer
	if err := modelTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering model %s: %w", in.Name, err)
	}
	return buf.String(), nil
}

func matches(pred func(string) bool, column string) bool {
	return pred != nil && pred(column)
}

func usesSoftDeletes(s *schema.Schema) bool {
	for _, c := range s.Columns {
		if c.Type == schema.TypeSoftDeletes {
			return true
		}
	}
	return false
}

func mentions(lines []string, word string) bool {
	for _, l := range lines {
		if strings.Contains(l, word) {
			return true
		}
	}
	return false
}

const modelTemplate = `<?php

namespace {{.Namespace}};
{{if .Imports}}
{{range .Imports}}{{.}}
{{end}}{{end}}
{{.Class}}
{
{{- if .Traits}}
{{- range .Traits}}
    {{.}}
{{- end}}
{{end}}
{{- if .Fillable}}
    protected $fillable = [
{{- range .Fillable}}
        {{quote .}},
{{- end}}
    ];
{{- else}}
    protected $fillable = [];
{{- end}}
{{- if .Casts}}

    protected $casts = [
{{- range .Casts}}
        {{quote .Column}} => {{quote .Type}},
{{- end}}
    ];
{{- end}}
{{- if .Hidden}}

    protected $hidden = [
{{- range .Hidden}}
        {{quote .}},
{{- end}}
    ];
{{- end}}
{{- range .Relations}}

    public function {{.Method}}()
    {
        return $this->{{.Kind}}({{.Model}}::class, {{quote .ForeignKey}}, {{quote .OwnerKey}});
    }
{{- end}}
}
`
