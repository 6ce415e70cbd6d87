package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkmgraph/pkm-engine/pkg/apperrors"
)

// WithTx runs fn inside a single transaction. The transaction is exposed to
// repositories through the context querier; any error from fn rolls the whole
// transaction back, so validation failures never leave partial state.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.withTx(ctx, pgx.TxOptions{}, fn)
}

// WithReadTx runs fn inside a read-only transaction. Materialization uses
// this so a single result is never assembled across concurrent commits, while
// writers are never blocked.
func (db *DB) WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.withTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (db *DB) withTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := db.Pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", apperrors.ErrStoreUnavailable)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(SetQuerier(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", apperrors.ErrStoreUnavailable)
	}
	return nil
}
