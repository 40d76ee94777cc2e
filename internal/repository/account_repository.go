package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, user_id, name, account_type, balance, is_primary, description, sort_order, created_at, updated_at`

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	_, err := r.db.Exec(
		query,
		account.ID,
		account.UserID,
		account.Name,
		account.AccountType,
		account.Balance.String(),
		account.IsPrimary,
		nullString(account.Description),
		account.SortOrder,
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
			return errors.ErrDuplicateAccount
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID, "user_id", account.UserID)
	return nil
}

func (r *accountRepository) GetAccount(id, userID uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = $1 AND user_id = $2
	`

	return r.scanAccount(query, id, userID)
}

// GetAccountForUpdate takes the exclusive row lock the balance protocol
// relies on. The lock is held until the surrounding transaction ends, so any
// other transaction touching the same account blocks here.
func (r *accountRepository) GetAccountForUpdate(id, userID uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE
	`

	return r.scanAccount(query, id, userID)
}

func (r *accountRepository) scanAccount(query string, id, userID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRow(query, id, userID)

	account, err := scanAccountRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			// Missing and not-owned look the same on purpose.
			r.logger.Warn("Account not found", "account_id", id, "user_id", userID)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	return account, nil
}

func (r *accountRepository) ListAccounts(userID uuid.UUID) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE user_id = $1
		ORDER BY sort_order, created_at
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccountRow(rows.Scan)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}

	return accounts, nil
}

// UpdateAccountBalance writes the new balance. It is only called by the
// balance service while the row lock from GetAccountForUpdate is held.
func (r *accountRepository) UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, newBalance.String(), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) DeleteAccount(id, userID uuid.UUID) error {
	query := `DELETE FROM accounts WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deleted", "account_id", id, "user_id", userID)
	return nil
}

// scanAccountRow works for both sql.Row and sql.Rows.
func scanAccountRow(scan func(dest ...interface{}) error) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string
	var description sql.NullString

	err := scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.AccountType,
		&balanceStr,
		&account.IsPrimary,
		&description,
		&account.SortOrder,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, err
	}
	account.Balance = balance
	account.Description = description.String

	return &account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
