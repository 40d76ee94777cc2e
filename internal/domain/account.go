package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypePrepaid    AccountType = "prepaid"
	AccountTypeOther      AccountType = "other"
)

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeBank, AccountTypeCreditCard, AccountTypePrepaid, AccountTypeOther:
		return true
	}
	return false
}

type Account struct {
	ID          uuid.UUID       `json:"account_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Name        string          `json:"name"`
	AccountType AccountType     `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	IsPrimary   bool            `json:"is_primary"`
	Description string          `json:"description,omitempty"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BalanceDelta is one signed adjustment against a single account. Every
// ledger operation (expense create/update/delete, transfers, fee payments)
// decomposes into one or more of these.
type BalanceDelta struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

type AccountRepository interface {
	CreateAccount(account *Account) error
	// GetAccount looks an account up scoped to its owner. A missing account
	// and an account owned by someone else are indistinguishable to callers.
	GetAccount(id, userID uuid.UUID) (*Account, error)
	// GetAccountForUpdate is GetAccount plus an exclusive row lock held
	// until the surrounding transaction ends. Only meaningful on a
	// transaction-scoped repository.
	GetAccountForUpdate(id, userID uuid.UUID) (*Account, error)
	ListAccounts(userID uuid.UUID) ([]*Account, error)
	UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error
	DeleteAccount(id, userID uuid.UUID) error
}
