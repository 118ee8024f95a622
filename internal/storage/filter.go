package storage

import (
	"strings"

	"github.com/raztodo/raztodo/internal/domain"
)

// whereBuilder accumulates ANDed conditions and their positional arguments.
// prefix qualifies column names, e.g. "t." when the tasks table is aliased.
type whereBuilder struct {
	prefix     string
	conditions []string
	args       []interface{}
}

func newWhereBuilder(prefix string) *whereBuilder {
	return &whereBuilder{prefix: prefix}
}

func (b *whereBuilder) add(condition string, args ...interface{}) {
	b.conditions = append(b.conditions, condition)
	b.args = append(b.args, args...)
}

func (b *whereBuilder) eq(column string, value *string) {
	if value != nil {
		b.add(b.prefix+column+" = ?", *value)
	}
}

// anyTag matches rows whose serialized tags contain any of tags as a
// substring. "work" therefore also matches "homework".
func (b *whereBuilder) anyTag(tags []string) {
	if len(tags) == 0 {
		return
	}
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = b.prefix + "tags LIKE ?"
		b.args = append(b.args, "%"+tag+"%")
	}
	b.conditions = append(b.conditions, "("+strings.Join(parts, " OR ")+")")
}

func (b *whereBuilder) listFilter(f domain.ListFilter) {
	b.eq("priority", f.Priority)
	b.eq("project", f.Project)
	if f.Done != nil {
		done := 0
		if *f.Done {
			done = 1
		}
		b.add(b.prefix+"done = ?", done)
	}
	if f.DueBefore != nil && *f.DueBefore != "" {
		b.add(b.prefix+"due_date IS NOT NULL AND "+b.prefix+"due_date <= ?", *f.DueBefore)
	}
	if f.DueAfter != nil && *f.DueAfter != "" {
		b.add(b.prefix+"due_date IS NOT NULL AND "+b.prefix+"due_date >= ?", *f.DueAfter)
	}
	b.anyTag(f.Tags)
}

func (b *whereBuilder) searchFilter(f domain.SearchFilter) {
	b.eq("priority", f.Priority)
	b.eq("project", f.Project)
	b.anyTag(f.Tags)
}

// clause renders " WHERE ..." or the empty string when there are no conditions.
func (b *whereBuilder) clause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

// and renders " AND ..." for appending to an existing WHERE clause.
func (b *whereBuilder) and() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " AND " + strings.Join(b.conditions, " AND ")
}

// likeEscaper escapes LIKE wildcards so user input matches literally with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ftsPrefixQuery quotes keyword as a single FTS5 phrase with prefix matching.
func ftsPrefixQuery(keyword string) string {
	return `"` + strings.ReplaceAll(keyword, `"`, `""`) + `"*`
}

// pagination renders the LIMIT/OFFSET suffix. SQLite requires a LIMIT before
// OFFSET, so an offset alone uses LIMIT -1.
func pagination(limit, offset *int) (string, []interface{}) {
	switch {
	case limit != nil && offset != nil:
		return " LIMIT ? OFFSET ?", []interface{}{*limit, *offset}
	case limit != nil:
		return " LIMIT ?", []interface{}{*limit}
	case offset != nil:
		return " LIMIT -1 OFFSET ?", []interface{}{*offset}
	default:
		return "", nil
	}
}
