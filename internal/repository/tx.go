package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// runInTx runs fn in the provided tx, or opens/commits an internal
// transaction when tx is nil. Every repository shares this shape so
// services can compose multi-table writes atomically.
func runInTx(ctx context.Context, db *sqlx.DB, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}
