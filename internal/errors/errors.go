package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound     ErrorCode = "account_not_found"
	ExpenseNotFound     ErrorCode = "expense_not_found"
	TransferNotFound    ErrorCode = "transfer_not_found"
	FeeRecordNotFound   ErrorCode = "maintenance_fee_not_found"
	DuplicateAccount    ErrorCode = "duplicate_account"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	InvalidAmount       ErrorCode = "invalid_amount"
	InvalidInput        ErrorCode = "invalid_input"
	FeeAlreadyPaid      ErrorCode = "maintenance_fee_already_paid"
	FeeNotPaid          ErrorCode = "maintenance_fee_not_paid"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to the status the HTTP layer responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound, ExpenseNotFound, TransferNotFound, FeeRecordNotFound:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case SameAccountTransfer, InvalidAmount, InvalidInput, FeeAlreadyPaid, FeeNotPaid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// Predefined errors for common cases
var (
	// ErrAccountNotFound deliberately covers both "no such account" and
	// "account belongs to another user".
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrExpenseNotFound        = NewAppError(ExpenseNotFound, "expense not found")
	ErrTransferNotFound       = NewAppError(TransferNotFound, "transfer not found")
	ErrFeeRecordNotFound      = NewAppError(FeeRecordNotFound, "maintenance fee record not found")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be positive")
	ErrFeeAlreadyPaid         = NewAppError(FeeAlreadyPaid, "maintenance fee record is already paid")
	ErrFeeNotPaid             = NewAppError(FeeNotPaid, "maintenance fee record is not paid")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin transaction outside the root store")
)
