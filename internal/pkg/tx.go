package pkg

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// WithTx runs fn inside a transaction bound to ctx and commits when fn
// returns nil. An error from fn rolls back and is returned unwrapped so
// callers can still match domain errors. A panic rolls back and is re-raised.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return errors.New("with tx: db is nil")
	}
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	done := false
	defer func() {
		if !done {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		done = true
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	done = true
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
