package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

type expenseRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewExpenseRepository(db SQLExecutor, logger *slog.Logger) domain.ExpenseRepository {
	return &expenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `id, user_id, account_id, category_id, amount, memo, expense_at, created_at, updated_at`

func (r *expenseRepository) CreateExpense(expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	now := time.Now()
	_, err := r.db.Exec(
		query,
		expense.ID,
		expense.UserID,
		expense.AccountID,
		nullUUID(expense.CategoryID),
		expense.Amount.String(),
		nullString(expense.Memo),
		expense.ExpenseAt,
		now,
		now,
	)

	if err != nil {
		r.logger.Error("Failed to create expense",
			"expense_id", expense.ID,
			"account_id", expense.AccountID,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create expense").WithDetails(err.Error())
	}

	expense.CreatedAt = now
	expense.UpdatedAt = now
	r.logger.Info("Expense created successfully", "expense_id", expense.ID, "amount", expense.Amount)
	return nil
}

func (r *expenseRepository) GetExpense(id, userID uuid.UUID) (*domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses WHERE id = $1 AND user_id = $2
	`

	row := r.db.QueryRow(query, id, userID)
	expense, err := scanExpenseRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrExpenseNotFound
		}
		r.logger.Error("Failed to get expense", "expense_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get expense").WithDetails(err.Error())
	}

	return expense, nil
}

func (r *expenseRepository) ListExpenses(userID uuid.UUID, filter domain.ExpenseFilter) ([]*domain.Expense, int, error) {
	conditions := "user_id = $1"
	args := []interface{}{userID}

	appendCondition := func(clause string, arg interface{}) {
		args = append(args, arg)
		conditions += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if filter.AccountID != nil {
		appendCondition("account_id =", *filter.AccountID)
	}
	if filter.CategoryID != nil {
		appendCondition("category_id =", *filter.CategoryID)
	}
	if filter.StartDate != nil {
		appendCondition("expense_at >=", *filter.StartDate)
	}
	if filter.EndDate != nil {
		appendCondition("expense_at <=", *filter.EndDate)
	}

	var total int
	countQuery := `SELECT COUNT(id) FROM expenses WHERE ` + conditions
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count expenses", "user_id", userID, "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to count expenses").WithDetails(err.Error())
	}

	offset := (filter.Page - 1) * filter.Size
	query := fmt.Sprintf(`
		SELECT `+expenseColumns+`
		FROM expenses WHERE %s
		ORDER BY expense_at DESC
		OFFSET $%d LIMIT $%d
	`, conditions, len(args)+1, len(args)+2)
	args = append(args, offset, filter.Size)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", "user_id", userID, "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list expenses").WithDetails(err.Error())
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		expense, err := scanExpenseRow(rows.Scan)
		if err != nil {
			return nil, 0, errors.NewAppError(errors.InternalError, "failed to scan expense").WithDetails(err.Error())
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list expenses").WithDetails(err.Error())
	}

	return expenses, total, nil
}

func (r *expenseRepository) UpdateExpense(expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET account_id = $1, category_id = $2, amount = $3, memo = $4, expense_at = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
	`

	now := time.Now()
	result, err := r.db.Exec(
		query,
		expense.AccountID,
		nullUUID(expense.CategoryID),
		expense.Amount.String(),
		nullString(expense.Memo),
		expense.ExpenseAt,
		now,
		expense.ID,
		expense.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", "expense_id", expense.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update expense").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrExpenseNotFound
	}

	expense.UpdatedAt = now
	return nil
}

func (r *expenseRepository) DeleteExpense(id uuid.UUID) error {
	query := `DELETE FROM expenses WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Error("Failed to delete expense", "expense_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete expense").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrExpenseNotFound
	}

	return nil
}

func scanExpenseRow(scan func(dest ...interface{}) error) (*domain.Expense, error) {
	var expense domain.Expense
	var amountStr string
	var categoryID uuid.NullUUID
	var memo sql.NullString

	err := scan(
		&expense.ID,
		&expense.UserID,
		&expense.AccountID,
		&categoryID,
		&amountStr,
		&memo,
		&expense.ExpenseAt,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	expense.Amount = amount
	expense.Memo = memo.String
	if categoryID.Valid {
		id := categoryID.UUID
		expense.CategoryID = &id
	}

	return &expense, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
