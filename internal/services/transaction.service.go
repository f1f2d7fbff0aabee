package services

import (
	"context"
	"fmt"

	"cadenza/internal/database"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

type TransactionService struct {
	db  database.DB
	log logger.Logger
}

func NewTransactionService(db database.DB) *TransactionService {
	return &TransactionService{
		db:  db,
		log: logger.New("TransactionService"),
	}
}

// Execute runs fn inside a transaction and commits or rolls back based on
// its result. Panics roll back and come back as errors; a failed rollback
// after a panic crashes the process rather than risk a half-applied write.
func (ts *TransactionService) Execute(
	ctx context.Context,
	fn func(context.Context, *gorm.DB) error,
) (err error) {
	log := ts.log.Function("Execute")

	tx := ts.db.SQLWithContext(ctx).Begin()
	if tx.Error != nil {
		return log.Err("failed to begin transaction", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			panicErr := log.ErrMsg("panic during transaction: " + fmt.Sprintf("%v", r))

			if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
				log.Er("failed to rollback after panic", rollbackErr, "panic", r)
				panic(fmt.Sprintf(
					"transaction rollback failed: %v (original panic: %v)",
					rollbackErr,
					r,
				))
			}

			err = panicErr
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
			return log.Error(
				"transaction rollback failed",
				"rollbackError", rollbackErr,
				"originalError", err,
			)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return log.Err("failed to commit transaction", err)
	}

	return nil
}
