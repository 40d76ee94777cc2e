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

// MaintenanceFeeService tracks monthly maintenance-fee bills. Paying a bill
// is a ledger event and debits the chosen account through the balance
// protocol; everything else is plain CRUD.
type MaintenanceFeeService struct {
	store   *repository.Store
	balance *BalanceService
	logger  *slog.Logger
}

func NewMaintenanceFeeService(store *repository.Store, balance *BalanceService, logger *slog.Logger) *MaintenanceFeeService {
	return &MaintenanceFeeService{
		store:   store,
		balance: balance,
		logger:  logger,
	}
}

type CreateFeeRecordRequest struct {
	YearMonth string
	Details   []domain.FeeDetail
	Memo      string
}

func (s *MaintenanceFeeService) CreateRecord(userID uuid.UUID, req *CreateFeeRecordRequest) (*domain.MaintenanceFeeRecord, error) {
	if _, err := time.Parse("2006-01", req.YearMonth); err != nil {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "year_month must look like 2025-11, got %q", req.YearMonth)
	}
	if len(req.Details) == 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "at least one fee detail is required")
	}

	total := decimal.Zero
	for _, d := range req.Details {
		if d.Amount.IsNegative() {
			return nil, errors.NewAppError(errors.InvalidAmount, "fee detail amounts cannot be negative")
		}
		total = total.Add(d.Amount)
	}

	record := &domain.MaintenanceFeeRecord{
		ID:          uuid.New(),
		UserID:      userID,
		YearMonth:   req.YearMonth,
		TotalAmount: total,
		Details:     req.Details,
		Memo:        req.Memo,
	}

	if err := s.store.MaintenanceFee().CreateRecord(record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *MaintenanceFeeService) GetRecord(userID, recordID uuid.UUID) (*domain.MaintenanceFeeRecord, error) {
	return s.store.MaintenanceFee().GetRecord(recordID, userID)
}

func (s *MaintenanceFeeService) ListRecords(userID uuid.UUID, yearMonth string) ([]*domain.MaintenanceFeeRecord, error) {
	return s.store.MaintenanceFee().ListRecords(userID, yearMonth)
}

// PayRecord debits the account by the bill total and stamps the record, in
// one transaction. A bill can only be paid once.
func (s *MaintenanceFeeService) PayRecord(userID, recordID, accountID uuid.UUID) (*domain.MaintenanceFeeRecord, error) {
	var paid *domain.MaintenanceFeeRecord
	err := s.store.WithTransaction(func(tx *repository.Store) error {
		record, err := tx.MaintenanceFee().GetRecord(recordID, userID)
		if err != nil {
			return err
		}
		if record.PaidAt != nil {
			return errors.ErrFeeAlreadyPaid
		}

		if _, err := s.balance.ApplyDelta(tx.Account(), accountID, userID, record.TotalAmount.Neg()); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.MaintenanceFee().MarkPaid(record.ID, accountID, now); err != nil {
			return err
		}

		record.AccountID = &accountID
		record.PaidAt = &now
		paid = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Maintenance fee paid", "record_id", recordID, "account_id", accountID)
	return paid, nil
}

// UnpayRecord reverses the payment with the mirror delta and clears the
// stamp.
func (s *MaintenanceFeeService) UnpayRecord(userID, recordID uuid.UUID) (*domain.MaintenanceFeeRecord, error) {
	var unpaid *domain.MaintenanceFeeRecord
	err := s.store.WithTransaction(func(tx *repository.Store) error {
		record, err := tx.MaintenanceFee().GetRecord(recordID, userID)
		if err != nil {
			return err
		}
		if record.PaidAt == nil || record.AccountID == nil {
			return errors.ErrFeeNotPaid
		}

		if _, err := s.balance.ApplyDelta(tx.Account(), *record.AccountID, userID, record.TotalAmount); err != nil {
			return err
		}

		if err := tx.MaintenanceFee().ClearPaid(record.ID); err != nil {
			return err
		}

		record.AccountID = nil
		record.PaidAt = nil
		unpaid = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return unpaid, nil
}

// DeleteRecord refuses to drop a paid bill; the payment has to be reversed
// first so no balance ends up unexplained.
func (s *MaintenanceFeeService) DeleteRecord(userID, recordID uuid.UUID) error {
	return s.store.WithTransaction(func(tx *repository.Store) error {
		record, err := tx.MaintenanceFee().GetRecord(recordID, userID)
		if err != nil {
			return err
		}
		if record.PaidAt != nil {
			return errors.NewAppError(errors.FeeAlreadyPaid, "unpay the record before deleting it")
		}
		return tx.MaintenanceFee().DeleteRecord(record.ID)
	})
}
