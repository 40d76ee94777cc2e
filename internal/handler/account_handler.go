package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
	"github.com/alpaii/WhereDidAllMyMoney/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
	Balance     string `json:"balance"`
	IsPrimary   bool   `json:"is_primary"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

type AccountResponse struct {
	AccountID   string `json:"account_id"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
	Balance     string `json:"balance"`
	IsPrimary   bool   `json:"is_primary"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:   account.ID.String(),
		Name:        account.Name,
		AccountType: string(account.AccountType),
		Balance:     account.Balance.StringFixed(2),
		IsPrimary:   account.IsPrimary,
		Description: account.Description,
		SortOrder:   account.SortOrder,
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		parsed, err := decimal.NewFromString(req.Balance)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid balance format").WithDetails(err.Error()))
			return
		}
		balance = parsed
	}

	account, err := h.accountService.CreateAccount(userID, &service.CreateAccountRequest{
		Name:        req.Name,
		AccountType: domain.AccountType(req.AccountType),
		Balance:     balance,
		IsPrimary:   req.IsPrimary,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accountID, appErr := pathUUID(mux.Vars(r), "account_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.GetAccount(userID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accounts, err := h.accountService.ListAccounts(userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, toAccountResponse(account))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accountID, appErr := pathUUID(mux.Vars(r), "account_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.accountService.DeleteAccount(userID, accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
