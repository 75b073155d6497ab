package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryer is the pgx execution surface the schema-scoped repository
// wraps. *pgxpool.Pool and pgx.Tx both satisfy it.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Repository pins every query to one Postgres schema. Callers write SQL
// with a {schema} placeholder; the substitution happens here, with the
// schema name validated once at construction so templated identifiers
// can never smuggle in SQL.
type Repository struct {
	db     Queryer
	schema string
}

func NewRepository(db Queryer, schema string) (*Repository, error) {
	if !schemaNamePattern.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}
	return &Repository{db: db, schema: schema}, nil
}

func (r *Repository) Schema() string { return r.schema }

func (r *Repository) rewrite(sql string) string {
	return strings.ReplaceAll(sql, "{schema}", r.schema)
}

func (r *Repository) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return r.db.Query(ctx, r.rewrite(sql), args...)
}

func (r *Repository) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return r.db.QueryRow(ctx, r.rewrite(sql), args...)
}

func (r *Repository) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, r.rewrite(sql), args...)
}
