package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type Publisher interface {
	Publish(topic string, event any) error
	Close() error
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, any) error { return nil }
func (NoopPublisher) Close() error              { return nil }

// TransferCompleted is emitted after a transfer commits.
type TransferCompleted struct {
	TransferID    string          `json:"transfer_id"`
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
