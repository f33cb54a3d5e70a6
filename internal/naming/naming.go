// Package naming derives table, model and accessor names from one another
// following the Eloquent conventions.
package naming

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// TableForModel returns the conventional table name for a model identifier:
// the snake_case form with its last word pluralized (Post -> posts,
// BlogPost -> blog_posts). Namespace prefixes are dropped.
func TableForModel(model string) string {
	words := strings.Split(inflect.Underscore(Basename(model)), "_")
	words[len(words)-1] = inflect.Pluralize(words[len(words)-1])
	return strings.Join(words, "_")
}

// ModelForTable returns the model identifier for a table name: the last word
// singularized and the whole name converted to StudlyCase.
func ModelForTable(table string) string {
	words := strings.Split(table, "_")
	words[len(words)-1] = inflect.Singularize(words[len(words)-1])
	return inflect.Camelize(strings.Join(words, "_"))
}

// TableForForeignKey infers the referenced table of a foreignId column:
// the trailing _id is stripped and the remainder pluralized (user_id -> users).
func TableForForeignKey(column string) string {
	base := StripIDSuffix(column)
	words := strings.Split(base, "_")
	words[len(words)-1] = inflect.Pluralize(words[len(words)-1])
	return strings.Join(words, "_")
}

// AccessorForForeignKey returns the relation method name for a foreign key
// column (author_id -> author, created_by -> createdBy).
func AccessorForForeignKey(column string) string {
	return inflect.CamelizeDownFirst(StripIDSuffix(column))
}

// ForeignKeyForAccessor is the inverse Eloquent default used when a
// belongsTo call omits its foreign key (author -> author_id).
func ForeignKeyForAccessor(method string) string {
	return inflect.Underscore(method) + "_id"
}

// StripIDSuffix removes a single trailing "_id".
func StripIDSuffix(column string) string {
	return strings.TrimSuffix(column, "_id")
}

// Basename strips a PHP namespace prefix (App\Models\User -> User).
func Basename(class string) string {
	class = strings.TrimPrefix(class, `\`)
	if i := strings.LastIndex(class, `\`); i >= 0 {
		return class[i+1:]
	}
	return class
}

// Qualify joins a namespace and a bare class name into a fully-qualified,
// leading-backslash class reference.
func Qualify(namespace, class string) string {
	namespace = strings.Trim(namespace, `\`)
	if namespace == "" {
		return `\` + class
	}
	return `\` + namespace + `\` + class
}
