package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
	"github.com/alpaii/WhereDidAllMyMoney/internal/service"
)

type TransferHandler struct {
	transferService *service.TransferService
}

func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

type CreateTransferRequest struct {
	FromAccountID string     `json:"from_account_id"`
	ToAccountID   string     `json:"to_account_id"`
	Amount        string     `json:"amount"`
	Memo          string     `json:"memo"`
	TransferredAt *time.Time `json:"transferred_at,omitempty"`
}

type TransferResponse struct {
	ID            string    `json:"id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Amount        string    `json:"amount"`
	Memo          string    `json:"memo,omitempty"`
	TransferredAt time.Time `json:"transferred_at"`
}

type CreateTransferResponse struct {
	Transfer           TransferResponse `json:"transfer"`
	FromAccountBalance string           `json:"from_account_balance"`
	ToAccountBalance   string           `json:"to_account_balance"`
}

func toTransferResponse(transfer *domain.Transfer) TransferResponse {
	return TransferResponse{
		ID:            transfer.ID.String(),
		FromAccountID: transfer.FromAccountID.String(),
		ToAccountID:   transfer.ToAccountID.String(),
		Amount:        transfer.Amount.StringFixed(2),
		Memo:          transfer.Memo,
		TransferredAt: transfer.TransferredAt,
	}
}

func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid from_account_id").WithDetails(err.Error()))
		return
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid to_account_id").WithDetails(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	createReq := &service.CreateTransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		Memo:          req.Memo,
	}
	if req.TransferredAt != nil {
		createReq.TransferredAt = *req.TransferredAt
	}

	result, err := h.transferService.CreateTransfer(userID, createReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateTransferResponse{
		Transfer:           toTransferResponse(result.Transfer),
		FromAccountBalance: result.FromAccount.Balance.StringFixed(2),
		ToAccountBalance:   result.ToAccount.Balance.StringFixed(2),
	})
}

func (h *TransferHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transferID, appErr := pathUUID(mux.Vars(r), "transfer_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transfer, err := h.transferService.GetTransfer(userID, transferID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransferResponse(transfer))
}

func (h *TransferHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var accountID *uuid.UUID
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id").WithDetails(err.Error()))
			return
		}
		accountID = &id
	}

	transfers, err := h.transferService.ListTransfers(userID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]TransferResponse, 0, len(transfers))
	for _, transfer := range transfers {
		responses = append(responses, toTransferResponse(transfer))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *TransferHandler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transferID, appErr := pathUUID(mux.Vars(r), "transfer_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.transferService.DeleteTransfer(userID, transferID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
