package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrExpenseNotFound, http.StatusNotFound},
		{ErrTransferNotFound, http.StatusNotFound},
		{ErrFeeRecordNotFound, http.StatusNotFound},
		{ErrDuplicateAccount, http.StatusConflict},
		{ErrSameAccountTransfer, http.StatusBadRequest},
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrFeeAlreadyPaid, http.StatusBadRequest},
		{ErrFeeNotPaid, http.StatusBadRequest},
		{NewAppError(InternalError, "boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.HTTPStatus(), "code %s", tt.err.Code)
	}
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrAccountNotFound.WithDetails("id=42")

	assert.Equal(t, "id=42", detailed.Details)
	assert.Empty(t, ErrAccountNotFound.Details, "sentinel errors are shared and must stay clean")
	assert.Equal(t, ErrAccountNotFound.Code, detailed.Code)
}

func TestErrorString(t *testing.T) {
	err := NewAppErrorf(InvalidInput, "bad field %q", "amount")
	assert.Equal(t, `invalid_input: bad field "amount"`, err.Error())
}
