// Package txn wraps a unit of work in a transaction frame: begin, invoke,
// commit on success, roll back on failure. Nesting Run inside Run opens a
// savepoint frame, so an inner failure discards only the inner work.
package txn

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Run executes fn inside a transaction frame and returns its result. On
// error or panic the frame is rolled back and the original failure
// propagates; on success the frame is committed. The rollback runs even when
// ctx is already cancelled, so a cancelled unit of work still releases its
// frame.
func Run[T any](ctx context.Context, tx types.Transactor, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := tx.BeginTx(ctx); err != nil {
		return zero, err
	}

	completed := false
	defer func() {
		if !completed {
			tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	out, err := fn(ctx)
	if err != nil {
		completed = true
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return zero, errors.Join(err, rbErr)
		}
		return zero, err
	}

	completed = true
	if err := tx.Commit(ctx); err != nil {
		// A failed commit leaves the frame open; discard it so the
		// transactor is not left mid-frame.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return zero, errors.Join(err, rbErr)
		}
		return zero, err
	}
	return out, nil
}

// Exec is Run for units of work without a result.
func Exec(ctx context.Context, tx types.Transactor, fn func(context.Context) error) error {
	_, err := Run(ctx, tx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
