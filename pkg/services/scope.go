// Package services implements the business operations of the graph-document
// store on top of the repositories: type registry, model lifecycle, relations,
// and materialization. Services own transaction boundaries; repositories only
// run statements in whatever scope the service established.
package services

import "context"

// TxScope is the database scoping surface services depend on. *database.DB
// satisfies it; unit tests substitute a passthrough that runs the callback on
// the given context.
type TxScope interface {
	// Scope returns a context whose querier is the shared pool.
	Scope(ctx context.Context) context.Context
	// WithTx runs fn in a read-write transaction that commits only if fn
	// returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithReadTx runs fn in a read-only transaction for consistent snapshots.
	WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}
