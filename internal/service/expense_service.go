package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
	"github.com/alpaii/WhereDidAllMyMoney/internal/repository"
)

// ExpenseService owns the expense ledger entries. Every monetary effect goes
// through the balance service inside the same transaction as the expense row.
type ExpenseService struct {
	store   *repository.Store
	balance *BalanceService
	logger  *slog.Logger
}

func NewExpenseService(store *repository.Store, balance *BalanceService, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{
		store:   store,
		balance: balance,
		logger:  logger,
	}
}

type CreateExpenseRequest struct {
	AccountID  uuid.UUID
	CategoryID *uuid.UUID
	Amount     decimal.Decimal
	Memo       string
	ExpenseAt  time.Time
}

// UpdateExpenseRequest carries only the fields being changed.
type UpdateExpenseRequest struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Amount     *decimal.Decimal
	Memo       *string
	ExpenseAt  *time.Time
}

func (s *ExpenseService) CreateExpense(userID uuid.UUID, req *CreateExpenseRequest) (*domain.Expense, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	expenseAt := req.ExpenseAt
	if expenseAt.IsZero() {
		expenseAt = time.Now()
	}

	expense := &domain.Expense{
		ID:         uuid.New(),
		UserID:     userID,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Memo:       req.Memo,
		ExpenseAt:  expenseAt,
	}

	err := s.store.WithTransaction(func(tx *repository.Store) error {
		// Debit first: the lock also proves the account exists and is ours.
		if _, err := s.balance.ApplyDelta(tx.Account(), req.AccountID, userID, req.Amount.Neg()); err != nil {
			return err
		}
		return tx.Expense().CreateExpense(expense)
	})
	if err != nil {
		return nil, err
	}

	return expense, nil
}

func (s *ExpenseService) GetExpense(userID, expenseID uuid.UUID) (*domain.Expense, error) {
	return s.store.Expense().GetExpense(expenseID, userID)
}

func (s *ExpenseService) ListExpenses(userID uuid.UUID, filter domain.ExpenseFilter) ([]*domain.Expense, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size < 1 {
		filter.Size = 100
	}
	if filter.Size > 200 {
		filter.Size = 200
	}
	return s.store.Expense().ListExpenses(userID, filter)
}

// UpdateExpense amends an expense and settles the implied balance deltas:
// restoring the old amount and applying the new one collapses to a single
// old-new delta when the account is unchanged, and becomes an ordered
// two-account pair when the expense moves between accounts.
func (s *ExpenseService) UpdateExpense(userID, expenseID uuid.UUID, req *UpdateExpenseRequest) (*domain.Expense, error) {
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var updated *domain.Expense
	err := s.store.WithTransaction(func(tx *repository.Store) error {
		expense, err := tx.Expense().GetExpense(expenseID, userID)
		if err != nil {
			return err
		}

		oldAccountID := expense.AccountID
		oldAmount := expense.Amount
		newAccountID := oldAccountID
		newAmount := oldAmount
		if req.AccountID != nil {
			newAccountID = *req.AccountID
		}
		if req.Amount != nil {
			newAmount = *req.Amount
		}

		if newAccountID == oldAccountID {
			if delta := oldAmount.Sub(newAmount); !delta.IsZero() {
				if _, err := s.balance.ApplyDelta(tx.Account(), oldAccountID, userID, delta); err != nil {
					return err
				}
			}
		} else {
			_, err := s.balance.ApplyDeltas(tx.Account(), userID, []domain.BalanceDelta{
				{AccountID: oldAccountID, Amount: oldAmount},
				{AccountID: newAccountID, Amount: newAmount.Neg()},
			})
			if err != nil {
				return err
			}
		}

		expense.AccountID = newAccountID
		expense.Amount = newAmount
		if req.CategoryID != nil {
			expense.CategoryID = req.CategoryID
		}
		if req.Memo != nil {
			expense.Memo = *req.Memo
		}
		if req.ExpenseAt != nil {
			expense.ExpenseAt = *req.ExpenseAt
		}

		if err := tx.Expense().UpdateExpense(expense); err != nil {
			return err
		}
		updated = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteExpense reverses the debit and removes the row in one transaction.
func (s *ExpenseService) DeleteExpense(userID, expenseID uuid.UUID) error {
	return s.store.WithTransaction(func(tx *repository.Store) error {
		expense, err := tx.Expense().GetExpense(expenseID, userID)
		if err != nil {
			return err
		}

		if _, err := s.balance.ApplyDelta(tx.Account(), expense.AccountID, userID, expense.Amount); err != nil {
			return err
		}
		return tx.Expense().DeleteExpense(expense.ID)
	})
}
