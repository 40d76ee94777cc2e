package service

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

// fakeAccountRepo stands in for a transaction-scoped repository and records
// the order in which rows were locked.
type fakeAccountRepo struct {
	accounts  map[uuid.UUID]*domain.Account
	lockOrder []uuid.UUID
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *fakeAccountRepo) CreateAccount(account *domain.Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) GetAccount(id, userID uuid.UUID) (*domain.Account, error) {
	account, ok := r.accounts[id]
	if !ok || account.UserID != userID {
		return nil, errors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetAccountForUpdate(id, userID uuid.UUID) (*domain.Account, error) {
	account, err := r.GetAccount(id, userID)
	if err != nil {
		return nil, err
	}
	r.lockOrder = append(r.lockOrder, id)
	return account, nil
}

func (r *fakeAccountRepo) ListAccounts(userID uuid.UUID) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	account, ok := r.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	return nil
}

func (r *fakeAccountRepo) DeleteAccount(id, userID uuid.UUID) error {
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) balance(id uuid.UUID) decimal.Decimal {
	return r.accounts[id].Balance
}

func testBalanceService() *BalanceService {
	return NewBalanceService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// orderedPair returns two distinct account IDs for one user such that a's
// bytes sort before b's.
func orderedPair(userID uuid.UUID, balance string) (*domain.Account, *domain.Account) {
	a := &domain.Account{ID: uuid.New(), UserID: userID, Balance: decimal.RequireFromString(balance)}
	b := &domain.Account{ID: uuid.New(), UserID: userID, Balance: decimal.RequireFromString(balance)}
	if bytes.Compare(a.ID[:], b.ID[:]) > 0 {
		a, b = b, a
	}
	return a, b
}

func TestApplyDelta(t *testing.T) {
	userID := uuid.New()
	account := &domain.Account{ID: uuid.New(), UserID: userID, Balance: decimal.RequireFromString("1000.00")}
	repo := newFakeAccountRepo(account)
	svc := testBalanceService()

	updated, err := svc.ApplyDelta(repo, account.ID, userID, decimal.RequireFromString("-150.00"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("850.00")))
	assert.True(t, repo.balance(account.ID).Equal(decimal.RequireFromString("850.00")))
}

func TestApplyDeltaAllowsNegativeBalance(t *testing.T) {
	userID := uuid.New()
	account := &domain.Account{ID: uuid.New(), UserID: userID, Balance: decimal.RequireFromString("100.00")}
	repo := newFakeAccountRepo(account)

	updated, err := testBalanceService().ApplyDelta(repo, account.ID, userID, decimal.RequireFromString("-250.00"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("-150.00")))
}

func TestApplyDeltaOwnership(t *testing.T) {
	owner := uuid.New()
	intruder := uuid.New()
	account := &domain.Account{ID: uuid.New(), UserID: owner, Balance: decimal.RequireFromString("500.00")}
	repo := newFakeAccountRepo(account)

	_, err := testBalanceService().ApplyDelta(repo, account.ID, intruder, decimal.RequireFromString("-10.00"))
	assert.Equal(t, errors.ErrAccountNotFound, err)
	assert.True(t, repo.balance(account.ID).Equal(decimal.RequireFromString("500.00")), "balance must be untouched")
	assert.Empty(t, repo.lockOrder)
}

func TestTransferSameAccountRejectedBeforeLocking(t *testing.T) {
	userID := uuid.New()
	account := &domain.Account{ID: uuid.New(), UserID: userID, Balance: decimal.RequireFromString("500.00")}
	repo := newFakeAccountRepo(account)

	_, _, err := testBalanceService().Transfer(repo, account.ID, account.ID, userID, decimal.RequireFromString("100.00"))
	assert.Equal(t, errors.ErrSameAccountTransfer, err)
	assert.Empty(t, repo.lockOrder, "no lock may be taken before validation")
	assert.True(t, repo.balance(account.ID).Equal(decimal.RequireFromString("500.00")))
}

func TestTransferNonPositiveAmountRejected(t *testing.T) {
	userID := uuid.New()
	a, b := orderedPair(userID, "500.00")
	repo := newFakeAccountRepo(a, b)
	svc := testBalanceService()

	for _, amount := range []string{"0", "-25.00"} {
		_, _, err := svc.Transfer(repo, a.ID, b.ID, userID, decimal.RequireFromString(amount))
		assert.Equal(t, errors.ErrInvalidAmount, err)
	}
	assert.Empty(t, repo.lockOrder)
}

func TestTransferMovesAmountBothWays(t *testing.T) {
	userID := uuid.New()
	a, b := orderedPair(userID, "1000.00")
	repo := newFakeAccountRepo(a, b)
	svc := testBalanceService()

	from, to, err := svc.Transfer(repo, a.ID, b.ID, userID, decimal.RequireFromString("300.00"))
	require.NoError(t, err)
	assert.True(t, from.Balance.Equal(decimal.RequireFromString("700.00")))
	assert.True(t, to.Balance.Equal(decimal.RequireFromString("1300.00")))

	// Mirror transfer restores both balances.
	_, _, err = svc.Transfer(repo, b.ID, a.ID, userID, decimal.RequireFromString("300.00"))
	require.NoError(t, err)
	assert.True(t, repo.balance(a.ID).Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, repo.balance(b.ID).Equal(decimal.RequireFromString("1000.00")))
}

func TestTransferLockOrderIndependentOfDirection(t *testing.T) {
	userID := uuid.New()
	a, b := orderedPair(userID, "1000.00")
	repo := newFakeAccountRepo(a, b)
	svc := testBalanceService()

	_, _, err := svc.Transfer(repo, a.ID, b.ID, userID, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	_, _, err = svc.Transfer(repo, b.ID, a.ID, userID, decimal.RequireFromString("10.00"))
	require.NoError(t, err)

	// Both directions must lock a before b; opposite orders would allow a
	// circular wait between two concurrent transfers.
	require.Len(t, repo.lockOrder, 4)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, a.ID, b.ID}, repo.lockOrder)
}

func TestApplyDeltasLocksInByteOrder(t *testing.T) {
	userID := uuid.New()
	a, b := orderedPair(userID, "100.00")
	repo := newFakeAccountRepo(a, b)

	_, err := testBalanceService().ApplyDeltas(repo, userID, []domain.BalanceDelta{
		{AccountID: b.ID, Amount: decimal.RequireFromString("-40.00")},
		{AccountID: a.ID, Amount: decimal.RequireFromString("40.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, repo.lockOrder)
	assert.True(t, repo.balance(a.ID).Equal(decimal.RequireFromString("140.00")))
	assert.True(t, repo.balance(b.ID).Equal(decimal.RequireFromString("60.00")))
}

func TestApplyDeltasAbortsWholeBatchOnMissingAccount(t *testing.T) {
	userID := uuid.New()
	a, b := orderedPair(userID, "100.00")
	repo := newFakeAccountRepo(a) // b is never created

	_, err := testBalanceService().ApplyDeltas(repo, userID, []domain.BalanceDelta{
		{AccountID: a.ID, Amount: decimal.RequireFromString("-40.00")},
		{AccountID: b.ID, Amount: decimal.RequireFromString("40.00")},
	})
	assert.Equal(t, errors.ErrAccountNotFound, err)
}
