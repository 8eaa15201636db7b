package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// withTx returns ctx carrying tx. Repo calls made with the returned context
// run on tx instead of the db the repo was constructed with.
func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// conn returns the transaction carried by ctx, or fallback when there is none.
func conn(ctx context.Context, fallback db) db {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// InSavepoint runs fn inside a savepoint of the transaction carried by ctx and
// rolls back to it when fn fails, leaving the outer transaction usable.
// Without a transaction in ctx fn simply runs.
func InSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok {
		return fn(ctx)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.InSavepoint: begin: %w", err)
	}
	if err := fn(withTx(ctx, sp)); err != nil {
		if rbErr := sp.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, fmt.Errorf("repo.InSavepoint: rollback: %w", rbErr))
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("repo.InSavepoint: release: %w", err)
	}
	return nil
}
