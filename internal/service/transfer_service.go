package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/events"
	"github.com/alpaii/WhereDidAllMyMoney/internal/repository"
)

type TransferService struct {
	store     *repository.Store
	balance   *BalanceService
	publisher events.Publisher
	logger    *slog.Logger
}

func NewTransferService(store *repository.Store, balance *BalanceService, publisher events.Publisher, logger *slog.Logger) *TransferService {
	return &TransferService{
		store:     store,
		balance:   balance,
		publisher: publisher,
		logger:    logger,
	}
}

type CreateTransferRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        decimal.Decimal
	Memo          string
	TransferredAt time.Time
}

type TransferResult struct {
	Transfer    *domain.Transfer `json:"transfer"`
	FromAccount *domain.Account  `json:"from_account"`
	ToAccount   *domain.Account  `json:"to_account"`
}

// CreateTransfer moves amount between two of the user's accounts and records
// the transfer row, all in one transaction. On any failure nothing is
// committed; there is no partially applied side.
func (s *TransferService) CreateTransfer(userID uuid.UUID, req *CreateTransferRequest) (*TransferResult, error) {
	s.logger.Info("Processing transfer",
		"from_account_id", req.FromAccountID,
		"to_account_id", req.ToAccountID,
		"amount", req.Amount)

	transferredAt := req.TransferredAt
	if transferredAt.IsZero() {
		transferredAt = time.Now()
	}

	transfer := &domain.Transfer{
		ID:            uuid.New(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Memo:          req.Memo,
		TransferredAt: transferredAt,
	}

	result := &TransferResult{Transfer: transfer}
	err := s.store.WithTransaction(func(tx *repository.Store) error {
		from, to, err := s.balance.Transfer(tx.Account(), req.FromAccountID, req.ToAccountID, userID, req.Amount)
		if err != nil {
			return err
		}
		result.FromAccount = from
		result.ToAccount = to
		return tx.Transfer().CreateTransfer(transfer)
	})
	if err != nil {
		s.logger.Error("Transfer failed", "error", err)
		return nil, err
	}

	s.publishCompleted(transfer)
	return result, nil
}

func (s *TransferService) GetTransfer(userID, transferID uuid.UUID) (*domain.Transfer, error) {
	return s.store.Transfer().GetTransfer(transferID, userID)
}

func (s *TransferService) ListTransfers(userID uuid.UUID, accountID *uuid.UUID) ([]*domain.Transfer, error) {
	return s.store.Transfer().ListTransfers(userID, accountID)
}

// DeleteTransfer undoes a transfer as the mirror-signed pair through the
// transfer protocol, then removes the row. Direct balance writes would skip
// the locking discipline, so the reversal goes through the same path.
func (s *TransferService) DeleteTransfer(userID, transferID uuid.UUID) error {
	return s.store.WithTransaction(func(tx *repository.Store) error {
		transfer, err := tx.Transfer().GetTransfer(transferID, userID)
		if err != nil {
			return err
		}

		_, _, err = s.balance.Transfer(tx.Account(), transfer.ToAccountID, transfer.FromAccountID, userID, transfer.Amount)
		if err != nil {
			return err
		}
		return tx.Transfer().DeleteTransfer(transfer.ID)
	})
}

// publishCompleted runs after commit; a publish failure never unwinds the
// transfer, it is only logged.
func (s *TransferService) publishCompleted(transfer *domain.Transfer) {
	event := events.TransferCompleted{
		TransferID:    transfer.ID.String(),
		FromAccountID: transfer.FromAccountID.String(),
		ToAccountID:   transfer.ToAccountID.String(),
		Amount:        transfer.Amount,
		OccurredAt:    transfer.TransferredAt,
	}
	if err := s.publisher.Publish("transfer_completed", event); err != nil {
		s.logger.Error("Failed to publish transfer event", "transfer_id", transfer.ID, "error", err)
	}
}
