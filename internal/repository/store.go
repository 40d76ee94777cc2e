package repository

import (
	"database/sql"
	"log/slog"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

// Store provides a unified interface for all repository operations with
// transaction support. A Store built by WithTransaction is scoped to that
// transaction; every repository it hands out runs on the same tx, so balance
// locks and ledger rows commit or roll back together.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates the root Store over the connection pool.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Expense returns an ExpenseRepository using the current executor
func (s *Store) Expense() domain.ExpenseRepository {
	return NewExpenseRepository(s.executor, s.logger)
}

// Transfer returns a TransferRepository using the current executor
func (s *Store) Transfer() domain.TransferRepository {
	return NewTransferRepository(s.executor, s.logger)
}

// MaintenanceFee returns a MaintenanceFeeRepository using the current executor
func (s *Store) MaintenanceFee() domain.MaintenanceFeeRepository {
	return NewMaintenanceFeeRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. fn receives a
// transaction-scoped Store; returning an error rolls everything back.
func (s *Store) WithTransaction(fn func(*Store) error) error {
	// Only the root store can begin transactions
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	txStore := &Store{
		executor: &TxWrapper{Tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
