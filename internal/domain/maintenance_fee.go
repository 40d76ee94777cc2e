package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeDetail is one line of a monthly maintenance-fee bill, e.g. electricity
// with its metered usage.
type FeeDetail struct {
	Category    string           `json:"category"`
	ItemName    string           `json:"item_name"`
	Amount      decimal.Decimal  `json:"amount"`
	UsageAmount *decimal.Decimal `json:"usage_amount,omitempty"`
	UsageUnit   string           `json:"usage_unit,omitempty"`
}

// MaintenanceFeeRecord is one monthly bill. AccountID and PaidAt are set
// together when the bill is paid; paying debits the account through the
// balance update protocol.
type MaintenanceFeeRecord struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	YearMonth   string          `json:"year_month"` // "2025-11"
	TotalAmount decimal.Decimal `json:"total_amount"`
	Details     []FeeDetail     `json:"details"`
	AccountID   *uuid.UUID      `json:"account_id,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	Memo        string          `json:"memo,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type MaintenanceFeeRepository interface {
	CreateRecord(record *MaintenanceFeeRecord) error
	GetRecord(id, userID uuid.UUID) (*MaintenanceFeeRecord, error)
	ListRecords(userID uuid.UUID, yearMonth string) ([]*MaintenanceFeeRecord, error)
	// MarkPaid stamps the payment account and time on an unpaid record.
	// Returns ErrFeeAlreadyPaid if the record was already stamped.
	MarkPaid(id uuid.UUID, accountID uuid.UUID, paidAt time.Time) error
	// ClearPaid removes the payment stamp from a paid record. Returns
	// ErrFeeNotPaid if the record has no stamp.
	ClearPaid(id uuid.UUID) error
	DeleteRecord(id uuid.UUID) error
}
