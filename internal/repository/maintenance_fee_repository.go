package repository

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

type maintenanceFeeRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewMaintenanceFeeRepository(db SQLExecutor, logger *slog.Logger) domain.MaintenanceFeeRepository {
	return &maintenanceFeeRepository{
		db:     db,
		logger: logger,
	}
}

const feeRecordColumns = `id, user_id, year_month, total_amount, details, account_id, paid_at, memo, created_at, updated_at`

func (r *maintenanceFeeRepository) CreateRecord(record *domain.MaintenanceFeeRecord) error {
	query := `
		INSERT INTO maintenance_fee_records (` + feeRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	details, err := json.Marshal(record.Details)
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to encode fee details").WithDetails(err.Error())
	}

	now := time.Now()
	_, err = r.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.YearMonth,
		record.TotalAmount.String(),
		details,
		nullUUID(record.AccountID),
		record.PaidAt,
		nullString(record.Memo),
		now,
		now,
	)

	if err != nil {
		r.logger.Error("Failed to create maintenance fee record",
			"record_id", record.ID,
			"year_month", record.YearMonth,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create maintenance fee record").WithDetails(err.Error())
	}

	record.CreatedAt = now
	record.UpdatedAt = now
	r.logger.Info("Maintenance fee record created", "record_id", record.ID, "year_month", record.YearMonth)
	return nil
}

func (r *maintenanceFeeRepository) GetRecord(id, userID uuid.UUID) (*domain.MaintenanceFeeRecord, error) {
	query := `
		SELECT ` + feeRecordColumns + `
		FROM maintenance_fee_records WHERE id = $1 AND user_id = $2
	`

	row := r.db.QueryRow(query, id, userID)
	record, err := scanFeeRecordRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrFeeRecordNotFound
		}
		r.logger.Error("Failed to get maintenance fee record", "record_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get maintenance fee record").WithDetails(err.Error())
	}

	return record, nil
}

func (r *maintenanceFeeRepository) ListRecords(userID uuid.UUID, yearMonth string) ([]*domain.MaintenanceFeeRecord, error) {
	query := `
		SELECT ` + feeRecordColumns + `
		FROM maintenance_fee_records WHERE user_id = $1
	`
	args := []interface{}{userID}

	if yearMonth != "" {
		query += ` AND year_month = $2`
		args = append(args, yearMonth)
	}
	query += ` ORDER BY year_month DESC, created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list maintenance fee records", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list maintenance fee records").WithDetails(err.Error())
	}
	defer rows.Close()

	var records []*domain.MaintenanceFeeRecord
	for rows.Next() {
		record, err := scanFeeRecordRow(rows.Scan)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan maintenance fee record").WithDetails(err.Error())
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list maintenance fee records").WithDetails(err.Error())
	}

	return records, nil
}

func (r *maintenanceFeeRepository) MarkPaid(id uuid.UUID, accountID uuid.UUID, paidAt time.Time) error {
	// paid_at IS NULL guards against paying the same bill twice.
	query := `
		UPDATE maintenance_fee_records
		SET account_id = $1, paid_at = $2, updated_at = $3
		WHERE id = $4 AND paid_at IS NULL
	`

	result, err := r.db.Exec(query, accountID, paidAt, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark maintenance fee record paid", "record_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to mark maintenance fee record paid").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrFeeAlreadyPaid
	}

	r.logger.Info("Maintenance fee record marked paid", "record_id", id, "account_id", accountID)
	return nil
}

func (r *maintenanceFeeRepository) ClearPaid(id uuid.UUID) error {
	query := `
		UPDATE maintenance_fee_records
		SET account_id = NULL, paid_at = NULL, updated_at = $1
		WHERE id = $2 AND paid_at IS NOT NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to clear maintenance fee payment", "record_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to clear maintenance fee payment").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrFeeNotPaid
	}

	return nil
}

func (r *maintenanceFeeRepository) DeleteRecord(id uuid.UUID) error {
	query := `DELETE FROM maintenance_fee_records WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Error("Failed to delete maintenance fee record", "record_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete maintenance fee record").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrFeeRecordNotFound
	}

	return nil
}

func scanFeeRecordRow(scan func(dest ...interface{}) error) (*domain.MaintenanceFeeRecord, error) {
	var record domain.MaintenanceFeeRecord
	var totalStr string
	var details []byte
	var accountID uuid.NullUUID
	var paidAt sql.NullTime
	var memo sql.NullString

	err := scan(
		&record.ID,
		&record.UserID,
		&record.YearMonth,
		&totalStr,
		&details,
		&accountID,
		&paidAt,
		&memo,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, err
	}
	record.TotalAmount = total

	if err := json.Unmarshal(details, &record.Details); err != nil {
		return nil, err
	}
	if accountID.Valid {
		id := accountID.UUID
		record.AccountID = &id
	}
	if paidAt.Valid {
		t := paidAt.Time
		record.PaidAt = &t
	}
	record.Memo = memo.String

	return &record, nil
}
