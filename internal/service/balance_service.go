package service

import (
	"bytes"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

// BalanceService is the only path that mutates account balances. Every
// method must be called with a transaction-scoped AccountRepository (from
// Store.WithTransaction); the caller owns commit and rollback, so balance
// changes land together with the ledger row that caused them.
type BalanceService struct {
	logger *slog.Logger
}

func NewBalanceService(logger *slog.Logger) *BalanceService {
	return &BalanceService{
		logger: logger,
	}
}

// ApplyDelta locks the account row exclusively, then replaces the balance
// with balance+delta. The lock blocks any concurrent read-modify-write of
// the same row until the surrounding transaction ends, which rules out lost
// updates. Balances may go negative; nothing clamps the result.
//
// Returns ErrAccountNotFound when the account does not exist or belongs to
// another user.
func (s *BalanceService) ApplyDelta(accounts domain.AccountRepository, accountID, userID uuid.UUID, delta decimal.Decimal) (*domain.Account, error) {
	account, err := accounts.GetAccountForUpdate(accountID, userID)
	if err != nil {
		return nil, err
	}

	newBalance := account.Balance.Add(delta)
	if err := accounts.UpdateAccountBalance(account.ID, newBalance); err != nil {
		return nil, err
	}

	account.Balance = newBalance
	s.logger.Info("Balance delta applied",
		"account_id", accountID,
		"delta", delta,
		"balance", newBalance)
	return account, nil
}

// ApplyDeltas applies a batch of deltas, locking accounts in byte order of
// their IDs rather than caller order. Any two transactions touching the same
// accounts therefore acquire the locks in the same relative order, which
// eliminates circular waits. Returns the updated accounts keyed by ID.
func (s *BalanceService) ApplyDeltas(accounts domain.AccountRepository, userID uuid.UUID, deltas []domain.BalanceDelta) (map[uuid.UUID]*domain.Account, error) {
	ordered := make([]domain.BalanceDelta, len(deltas))
	copy(ordered, deltas)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].AccountID[:], ordered[j].AccountID[:]) < 0
	})

	updated := make(map[uuid.UUID]*domain.Account, len(ordered))
	for _, d := range ordered {
		account, err := s.ApplyDelta(accounts, d.AccountID, userID, d.Amount)
		if err != nil {
			return nil, err
		}
		updated[d.AccountID] = account
	}

	return updated, nil
}

// Transfer debits from and credits to by amount as one indivisible unit.
// Validation happens before any lock is taken; the deltas then go through
// ApplyDeltas so both rows are locked in the fixed global order.
func (s *BalanceService) Transfer(accounts domain.AccountRepository, fromID, toID, userID uuid.UUID, amount decimal.Decimal) (*domain.Account, *domain.Account, error) {
	if fromID == toID {
		return nil, nil, errors.ErrSameAccountTransfer
	}
	if !amount.IsPositive() {
		return nil, nil, errors.ErrInvalidAmount
	}

	updated, err := s.ApplyDeltas(accounts, userID, []domain.BalanceDelta{
		{AccountID: fromID, Amount: amount.Neg()},
		{AccountID: toID, Amount: amount},
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Transfer applied",
		"from_account_id", fromID,
		"to_account_id", toID,
		"amount", amount)
	return updated[fromID], updated[toID], nil
}
