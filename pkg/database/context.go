package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx operations repositories need. It is satisfied
// by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx, so the same repository code
// runs inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querierContextKey struct{}

// SetQuerier returns a context carrying the given querier. Services set a
// transaction here before invoking repositories so every statement of a write
// operation shares one transaction.
func SetQuerier(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, querierContextKey{}, q)
}

// GetQuerier retrieves the querier from the context.
func GetQuerier(ctx context.Context) (Querier, bool) {
	q, ok := ctx.Value(querierContextKey{}).(Querier)
	return q, ok
}

// Scope returns a context whose querier is the shared pool, for reads that do
// not need transactional boundaries.
func (db *DB) Scope(ctx context.Context) context.Context {
	return SetQuerier(ctx, db.Pool)
}
