package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/priam/internal/errs"
)

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent CQL injection
// through the operator position (which cannot be bound).
var validOps = map[string]bool{
	"=":            true,
	"<":            true,
	">":            true,
	"<=":           true,
	">=":           true,
	"IN":           true,
	"CONTAINS":     true,
	"CONTAINS KEY": true,
}

// SelectBuilder constructs a parameterized CQL SELECT using a fluent API.
// Values are never interpolated into the statement; they are always passed as args.
//
// Usage:
//
//	cql, args, err := Select("users").
//	    Columns("id", "name", "email").
//	    Where("tenant", "=", P("acme", HintASCII)).
//	    OrderBy("created_at", Desc).
//	    Limit(20).
//	    Build()
type SelectBuilder struct {
	table          string
	keyspace       string
	columns        []string
	where          []whereClause
	orderBy        []orderClause
	limit          *int
	allowFiltering bool
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table.
func Select(table string) *SelectBuilder {
	return &SelectBuilder{table: table}
}

// Keyspace qualifies the table name with a keyspace.
func (b *SelectBuilder) Keyspace(ks string) *SelectBuilder {
	b.keyspace = ks
	return b
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. Multiple calls are combined with AND.
// value may be a Param to carry a type hint through to execution.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause on a clustering column.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// AllowFiltering appends ALLOW FILTERING.
func (b *SelectBuilder) AllowFiltering() *SelectBuilder {
	b.allowFiltering = true
	return b
}

// Build produces the final CQL statement and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select: table name is required")
	}

	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	if b.keyspace != "" {
		sb.WriteString(quoteIdent(b.keyspace))
		sb.WriteString(".")
	}
	sb.WriteString(quoteIdent(b.table))

	var args []any

	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(strings.Join(strings.Fields(w.op), " "))
			if !validOps[op] {
				return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
			}
			parts = append(parts, fmt.Sprintf("%s %s ?", quoteIdent(w.column), op))
			args = append(args, w.value)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if b.limit != nil {
		if *b.limit <= 0 {
			return "", nil, errs.Newf(errs.ErrKindInvalidInput, "limit must be positive, got %d", *b.limit)
		}
		sb.WriteString(" LIMIT ?")
		args = append(args, *b.limit)
	}

	if b.allowFiltering {
		sb.WriteString(" ALLOW FILTERING")
	}

	return sb.String(), args, nil
}

// quoteIdent wraps a CQL identifier in double-quotes, which keeps reserved
// words and mixed-case names intact.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
