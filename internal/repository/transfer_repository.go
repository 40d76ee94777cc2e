package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

type transferRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransferRepository(db SQLExecutor, logger *slog.Logger) domain.TransferRepository {
	return &transferRepository{
		db:     db,
		logger: logger,
	}
}

const transferColumns = `id, from_account_id, to_account_id, amount, memo, transferred_at, created_at`

// userOwnsTransfer scopes transfer visibility through account ownership;
// transfers carry no user_id of their own.
const userOwnsTransfer = `
	(from_account_id IN (SELECT id FROM accounts WHERE user_id = $2)
	 OR to_account_id IN (SELECT id FROM accounts WHERE user_id = $2))
`

func (r *transferRepository) CreateTransfer(transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	_, err := r.db.Exec(
		query,
		transfer.ID,
		transfer.FromAccountID,
		transfer.ToAccountID,
		transfer.Amount.String(),
		nullString(transfer.Memo),
		transfer.TransferredAt,
		now,
	)

	if err != nil {
		r.logger.Error("Failed to create transfer",
			"from_account_id", transfer.FromAccountID,
			"to_account_id", transfer.ToAccountID,
			"amount", transfer.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transfer").WithDetails(err.Error())
	}

	transfer.CreatedAt = now
	r.logger.Info("Transfer created successfully", "transfer_id", transfer.ID)
	return nil
}

func (r *transferRepository) GetTransfer(id, userID uuid.UUID) (*domain.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1 AND ` + userOwnsTransfer

	row := r.db.QueryRow(query, id, userID)
	transfer, err := scanTransferRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransferNotFound
		}
		r.logger.Error("Failed to get transfer", "transfer_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transfer").WithDetails(err.Error())
	}

	return transfer, nil
}

func (r *transferRepository) ListTransfers(userID uuid.UUID, accountID *uuid.UUID) ([]*domain.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE (from_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
		   OR to_account_id IN (SELECT id FROM accounts WHERE user_id = $1))`
	args := []interface{}{userID}

	if accountID != nil {
		query += ` AND (from_account_id = $2 OR to_account_id = $2)`
		args = append(args, *accountID)
	}
	query += ` ORDER BY transferred_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list transfers", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transfers").WithDetails(err.Error())
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		transfer, err := scanTransferRow(rows.Scan)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan transfer").WithDetails(err.Error())
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list transfers").WithDetails(err.Error())
	}

	return transfers, nil
}

func (r *transferRepository) DeleteTransfer(id uuid.UUID) error {
	query := `DELETE FROM transfers WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Error("Failed to delete transfer", "transfer_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete transfer").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrTransferNotFound
	}

	return nil
}

func scanTransferRow(scan func(dest ...interface{}) error) (*domain.Transfer, error) {
	var transfer domain.Transfer
	var amountStr string
	var memo sql.NullString

	err := scan(
		&transfer.ID,
		&transfer.FromAccountID,
		&transfer.ToAccountID,
		&amountStr,
		&memo,
		&transfer.TransferredAt,
		&transfer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	transfer.Amount = amount
	transfer.Memo = memo.String

	return &transfer, nil
}
