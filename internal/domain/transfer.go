package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer records a completed atomic move of Amount between two accounts
// of the same user. The balance effect always goes through the transfer
// protocol; the row is only the ledger entry.
type Transfer struct {
	ID            uuid.UUID       `json:"id"`
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo,omitempty"`
	TransferredAt time.Time       `json:"transferred_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TransferRepository interface {
	CreateTransfer(transfer *Transfer) error
	// GetTransfer is scoped through the user's accounts: the transfer is
	// visible only if one of its sides belongs to userID.
	GetTransfer(id, userID uuid.UUID) (*Transfer, error)
	ListTransfers(userID uuid.UUID, accountID *uuid.UUID) ([]*Transfer, error)
	DeleteTransfer(id uuid.UUID) error
}
