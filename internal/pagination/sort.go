// Package pagination provides reusable offset and cursor pagination over
// pgx-backed queries: validated request descriptors, bounded query
// assembly, best-effort total counting with caching, and typed response
// envelopes.
package pagination

import (
	"fmt"
	"regexp"
	"strings"
)

// SortOrder is the direction of a sort field.
type SortOrder string

const (
	Asc  SortOrder = "ASC"
	Desc SortOrder = "DESC"
)

// fieldPattern is the injection guard: sort fields are interpolated into
// SQL and must look like plain (optionally qualified) column names.
var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// SortField is a validated column/direction pair.
type SortField struct {
	field     string
	order     SortOrder
	nullsLast bool
}

func NewSortField(field string, order SortOrder) (SortField, error) {
	if !fieldPattern.MatchString(field) {
		return SortField{}, fmt.Errorf("invalid sort field %q", field)
	}
	switch order {
	case Asc, Desc:
	default:
		return SortField{}, fmt.Errorf("invalid sort order %q", order)
	}
	return SortField{field: field, order: order, nullsLast: true}, nil
}

func (f SortField) Field() string { return f.field }

func (f SortField) Order() SortOrder { return f.order }

func (f SortField) NullsLast() bool { return f.nullsLast }

// WithNullsFirst returns a copy sorting NULL values before non-NULL ones.
func (f SortField) WithNullsFirst() SortField {
	f.nullsLast = false
	return f
}

// render emits the ORDER BY fragment for this field.
func (f SortField) render() string {
	nulls := "NULLS LAST"
	if !f.nullsLast {
		nulls = "NULLS FIRST"
	}
	return fmt.Sprintf("%s %s %s", f.field, f.order, nulls)
}

// renderOrderBy builds a full ORDER BY clause, or "" without sort fields.
func renderOrderBy(fields []SortField) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.render()
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
