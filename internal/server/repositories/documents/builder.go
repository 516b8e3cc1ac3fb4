package documents

import (
	"fmt"
	"strings"
)

// insertBuilder assembles an INSERT for a fixed table where some columns are
// only sent when the client supplied them. Column names come from code, never
// from request input; values are always bound as $n placeholders.
type insertBuilder struct {
	table     string
	returning string
	cols      []string
	args      []any
}

func newInsert(table, returning string) *insertBuilder {
	return &insertBuilder{table: table, returning: returning}
}

// Set adds a column unconditionally.
func (b *insertBuilder) Set(col string, v any) *insertBuilder {
	b.cols = append(b.cols, col)
	b.args = append(b.args, v)
	return b
}

// setOptional adds col only when p is non-nil, binding the pointed-to value.
func setOptional[T any](b *insertBuilder, col string, p *T) {
	if p != nil {
		b.Set(col, *p)
	}
}

// Build renders the statement and its arguments.
func (b *insertBuilder) Build() (string, []any, error) {
	if len(b.cols) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no columns", b.table)
	}

	placeholders := make([]string, len(b.cols))
	for i := range b.cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.table, strings.Join(b.cols, ", "), strings.Join(placeholders, ", "))
	if b.returning != "" {
		query += " RETURNING " + b.returning
	}
	return query, b.args, nil
}
