package store

import (
	"context"

	"jobglob-engine/internal/reconcile"
)

// WithinTx lets the reconciliation engine scope one company's diff to a
// single transaction.
func (d *DB) WithinTx(ctx context.Context, fn func(reconcile.Gateway) error) error {
	return d.WithTx(ctx, func(tx *DB) error { return fn(tx) })
}

var (
	_ reconcile.Gateway    = (*DB)(nil)
	_ reconcile.Transactor = (*DB)(nil)
)
