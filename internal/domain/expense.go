package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	AccountID  uuid.UUID       `json:"account_id"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Memo       string          `json:"memo,omitempty"`
	ExpenseAt  time.Time       `json:"expense_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ExpenseFilter narrows ListExpenses. Page is 1-based.
type ExpenseFilter struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Size       int
}

type ExpenseRepository interface {
	CreateExpense(expense *Expense) error
	GetExpense(id, userID uuid.UUID) (*Expense, error)
	// ListExpenses returns one page ordered by expense_at descending, plus
	// the total match count.
	ListExpenses(userID uuid.UUID, filter ExpenseFilter) ([]*Expense, int, error)
	UpdateExpense(expense *Expense) error
	DeleteExpense(id uuid.UUID) error
}
