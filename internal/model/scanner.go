package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/modelsync/modelsync/internal/naming"
	"github.com/modelsync/modelsync/internal/relation"
)

var (
	classPattern    = regexp.MustCompile(`(?m)^\s*(?:(?:final|abstract|readonly)\s+)*class\s+(\w+)`)
	tablePattern    = regexp.MustCompile(`protected\s+\$table\s*=\s*['"]([^'"]+)['"]`)
	fillablePattern = regexp.MustCompile(`\$fillable\s*=\s*\[([^\]]*)\]`)
	castsProperty   = regexp.MustCompile(`\$casts\s*=\s*\[([^\]]*)\]`)
	castsMethod     = regexp.MustCompile(`function\s+casts\s*\(\s*\)[^{]*\{\s*return\s*\[([^\]]*)\]`)
	stringPattern   = regexp.MustCompile(`['"]([^'"]+)['"]`)
	pairPattern     = regexp.MustCompile(`['"]([^'"]+)['"]\s*=>\s*['"]([^'"]+)['"]`)
	traitPattern    = regexp.MustCompile(`(?m)^\s*use\s+([^;]+);`)

	methodPattern = regexp.MustCompile(
		`public\s+function\s+(\w+)\s*\(\s*\)\s*(?::\s*\??[\w\\]+\s*)?\{([^}]*)\}`)

	// $this->belongsTo(User::class[, 'fk'[, 'owner']]) or the string class form.
	belongsToPattern = regexp.MustCompile(
		`\$this->belongsTo\(\s*(?:\\?([\w\\]+)::class|['"]\\?([\w\\]+)['"])` +
			`(?:\s*,\s*(?:['"]([^'"]*)['"]|null))?(?:\s*,\s*['"]([^'"]*)['"])?\s*\)`)

	relationCallPattern = regexp.MustCompile(`\$this->(\w+)\(`)
)

var relationKinds = map[string]bool{
	"hasOne":         true,
	"hasMany":        true,
	"belongsToMany":  true,
	"hasOneThrough":  true,
	"hasManyThrough": true,
	"morphTo":        true,
	"morphOne":       true,
	"morphMany":      true,
	"morphToMany":    true,
	"morphedByMany":  true,
}

// ErrNoClass is returned for sources without a class declaration.
var ErrNoClass = errors.New("no class declaration")

// errNotRelation is what probes return for methods that build no relation.
var errNotRelation = errors.New("not a relationship")

// ScanSource reads a model class from PHP source text. tableFor resolves the
// table of a related class when a relationship probe runs; nil falls back to
// the naming convention.
func ScanSource(src []byte, tableFor func(class string) string) (*Definition, error) {
	text := string(src)
	if tableFor == nil {
		tableFor = naming.TableForModel
	}

	loc := classPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, ErrNoClass
	}
	class := text[loc[2]:loc[3]]
	body := text[loc[1]:]

	def := &Definition{Class: class, TableName: naming.TableForModel(class)}
	if m := tablePattern.FindStringSubmatch(body); m != nil {
		def.TableName = m[1]
	}

	if m := fillablePattern.FindStringSubmatch(body); m != nil {
		for _, s := range stringPattern.FindAllStringSubmatch(m[1], -1) {
			def.Fields = append(def.Fields, s[1])
		}
	}

	// casts() is merged over $casts, as the framework does.
	for _, p := range []*regexp.Regexp{castsProperty, castsMethod} {
		if m := p.FindStringSubmatch(body); m != nil {
			for _, pair := range pairPattern.FindAllStringSubmatch(m[1], -1) {
				def.CastRules = setCast(def.CastRules, Cast{Field: pair[1], Type: pair[2]})
			}
		}
	}

	for _, m := range traitPattern.FindAllStringSubmatch(body, -1) {
		for _, trait := range strings.Split(m[1], ",") {
			if naming.Basename(strings.TrimSpace(trait)) == "SoftDeletes" {
				def.SoftDeletes = true
			}
		}
	}

	for _, m := range methodPattern.FindAllStringSubmatch(body, -1) {
		name, fnBody := m[1], m[2]
		if strings.HasPrefix(name, "__") {
			continue
		}
		def.Methods = append(def.Methods, Accessor{
			Name:  name,
			Probe: probeFor(name, fnBody, tableFor),
		})
	}

	return def, nil
}

func setCast(casts []Cast, c Cast) []Cast {
	for i := range casts {
		if casts[i].Field == c.Field {
			casts[i] = c
			return casts
		}
	}
	return append(casts, c)
}

// probeFor interprets an accessor body. The related table is resolved when
// the probe runs so that every model in the directory is known by then.
func probeFor(method, body string, tableFor func(string) string) func() (*Relation, error) {
	if m := belongsToPattern.FindStringSubmatch(body); m != nil {
		related := m[1]
		if related == "" {
			related = m[2]
		}
		related = strings.TrimPrefix(related, `\`)
		fk, owner := m[3], m[4]
		if fk == "" {
			fk = naming.ForeignKeyForAccessor(method)
		}
		if owner == "" {
			owner = relation.DefaultOwnerKey
		}
		return func() (*Relation, error) {
			return &Relation{
				Kind:       relation.BelongsTo,
				Related:    related,
				Table:      tableFor(related),
				ForeignKey: fk,
				OwnerKey:   owner,
			}, nil
		}
	}

	if m := relationCallPattern.FindStringSubmatch(body); m != nil && relationKinds[m[1]] {
		kind := relation.Kind(m[1])
		return func() (*Relation, error) {
			return &Relation{Kind: kind}, nil
		}
	}

	return func() (*Relation, error) {
		return nil, fmt.Errorf("%s: %w", method, errNotRelation)
	}
}
