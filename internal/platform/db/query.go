package db

import (
	"fmt"
	"strings"
	"time"
)

// Query builds a parameterized SELECT with an AND-joined WHERE clause. Count
// and data statements share the same predicate and argument list so a total
// and its page can never be computed from different filters.
type Query struct {
	from    string
	cols    string
	where   []string
	args    []interface{}
	orderBy string
}

// NewQuery creates a Query over a FROM expression (a table or a join).
func NewQuery(from, cols string) *Query {
	return &Query{from: from, cols: cols}
}

// Arg binds a value and returns its placeholder.
func (q *Query) Arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// Where appends a raw predicate. Placeholders must come from Arg.
func (q *Query) Where(clause string) {
	q.where = append(q.where, clause)
}

// WhereContainsAny matches a case-insensitive substring against any of the
// given expressions. An empty term adds nothing.
func (q *Query) WhereContainsAny(term string, exprs ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(exprs) == 0 {
		return
	}
	ph := q.Arg("%" + EscapeLike(term) + "%")
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = fmt.Sprintf("%s ILIKE %s", e, ph)
	}
	q.Where("(" + strings.Join(parts, " OR ") + ")")
}

// WhereBetween bounds expr inclusively on each side that is non-nil.
func (q *Query) WhereBetween(expr string, from, to *time.Time) {
	if from != nil {
		q.Where(fmt.Sprintf("%s >= %s", expr, q.Arg(*from)))
	}
	if to != nil {
		q.Where(fmt.Sprintf("%s <= %s", expr, q.Arg(*to)))
	}
}

// OrderBy sets the ORDER BY clause (without the keyword).
func (q *Query) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

// WhereSQL renders the predicate, "TRUE" when empty.
func (q *Query) WhereSQL() string {
	if len(q.where) == 0 {
		return "TRUE"
	}
	return strings.Join(q.where, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (q *Query) Args() []interface{} {
	return q.args
}

// FilteredSQL is the unpaginated SELECT; useful as a CTE body.
func (q *Query) FilteredSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", q.cols, q.from, q.WhereSQL())
}

// CountSQL returns the count query SQL.
func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", q.from, q.WhereSQL())
}

// DataSQL returns the data query with ORDER BY and LIMIT/OFFSET placeholders
// following the filter arguments.
func (q *Query) DataSQL() string {
	sql := q.FilteredSQL()
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	n := len(q.args)
	return sql + fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
}

// DataArgs returns the filter arguments followed by limit and offset.
func (q *Query) DataArgs(limit, offset int) []interface{} {
	out := make([]interface{}, len(q.args), len(q.args)+2)
	copy(out, q.args)
	return append(out, limit, offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
