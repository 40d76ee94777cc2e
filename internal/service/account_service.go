package service

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
	"github.com/alpaii/WhereDidAllMyMoney/internal/repository"
)

type AccountService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewAccountService(store *repository.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

type CreateAccountRequest struct {
	Name        string
	AccountType domain.AccountType
	Balance     decimal.Decimal
	IsPrimary   bool
	Description string
	SortOrder   int
}

func (s *AccountService) CreateAccount(userID uuid.UUID, req *CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account", "user_id", userID, "name", req.Name, "account_type", req.AccountType)

	if req.Name == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "account name is required")
	}
	if !req.AccountType.IsValid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown account type %q", req.AccountType)
	}

	account := &domain.Account{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        req.Name,
		AccountType: req.AccountType,
		Balance:     req.Balance,
		IsPrimary:   req.IsPrimary,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}

	if err := s.store.Account().CreateAccount(account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *AccountService) GetAccount(userID, accountID uuid.UUID) (*domain.Account, error) {
	return s.store.Account().GetAccount(accountID, userID)
}

func (s *AccountService) ListAccounts(userID uuid.UUID) ([]*domain.Account, error) {
	return s.store.Account().ListAccounts(userID)
}

// DeleteAccount removes the account; dependent expense and transfer rows go
// with it (ON DELETE CASCADE), so no balance is left referencing them.
func (s *AccountService) DeleteAccount(userID, accountID uuid.UUID) error {
	s.logger.Info("Deleting account", "user_id", userID, "account_id", accountID)
	return s.store.Account().DeleteAccount(accountID, userID)
}
