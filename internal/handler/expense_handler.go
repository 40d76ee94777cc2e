package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/alpaii/WhereDidAllMyMoney/internal/domain"
	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
	"github.com/alpaii/WhereDidAllMyMoney/internal/service"
)

type ExpenseHandler struct {
	expenseService *service.ExpenseService
}

func NewExpenseHandler(expenseService *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
	}
}

type CreateExpenseRequest struct {
	AccountID  string     `json:"account_id"`
	CategoryID *string    `json:"category_id,omitempty"`
	Amount     string     `json:"amount"`
	Memo       string     `json:"memo"`
	ExpenseAt  *time.Time `json:"expense_at,omitempty"`
}

type UpdateExpenseRequest struct {
	AccountID  *string    `json:"account_id,omitempty"`
	CategoryID *string    `json:"category_id,omitempty"`
	Amount     *string    `json:"amount,omitempty"`
	Memo       *string    `json:"memo,omitempty"`
	ExpenseAt  *time.Time `json:"expense_at,omitempty"`
}

type ExpenseResponse struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	CategoryID *string   `json:"category_id,omitempty"`
	Amount     string    `json:"amount"`
	Memo       string    `json:"memo,omitempty"`
	ExpenseAt  time.Time `json:"expense_at"`
}

type PaginatedExpenseResponse struct {
	Items []ExpenseResponse `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Pages int               `json:"pages"`
}

func toExpenseResponse(expense *domain.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:        expense.ID.String(),
		AccountID: expense.AccountID.String(),
		Amount:    expense.Amount.StringFixed(2),
		Memo:      expense.Memo,
		ExpenseAt: expense.ExpenseAt,
	}
	if expense.CategoryID != nil {
		id := expense.CategoryID.String()
		resp.CategoryID = &id
	}
	return resp
}

func parseOptionalUUID(raw *string, name string) (*uuid.UUID, *errors.AppError) {
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "invalid %s", name).WithDetails(err.Error())
	}
	return &id, nil
}

func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id").WithDetails(err.Error()))
		return
	}

	categoryID, appErr := parseOptionalUUID(req.CategoryID, "category_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	createReq := &service.CreateExpenseRequest{
		AccountID:  accountID,
		CategoryID: categoryID,
		Amount:     amount,
		Memo:       req.Memo,
	}
	if req.ExpenseAt != nil {
		createReq.ExpenseAt = *req.ExpenseAt
	}

	expense, err := h.expenseService.CreateExpense(userID, createReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	expenseID, appErr := pathUUID(mux.Vars(r), "expense_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	expense, err := h.expenseService.GetExpense(userID, expenseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	filter, appErr := expenseFilterFromQuery(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	expenses, total, err := h.expenseService.ListExpenses(userID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]ExpenseResponse, 0, len(expenses))
	for _, expense := range expenses {
		items = append(items, toExpenseResponse(expense))
	}

	size := filter.Size
	if size < 1 {
		size = 100
	}
	pages := 1
	if total > 0 {
		pages = (total + size - 1) / size
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	writeJSON(w, http.StatusOK, PaginatedExpenseResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	})
}

func expenseFilterFromQuery(r *http.Request) (domain.ExpenseFilter, *errors.AppError) {
	var filter domain.ExpenseFilter
	query := r.URL.Query()

	for _, q := range []struct {
		name string
		dest **uuid.UUID
	}{
		{"account_id", &filter.AccountID},
		{"category_id", &filter.CategoryID},
	} {
		if raw := query.Get(q.name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return filter, errors.NewAppErrorf(errors.InvalidInput, "invalid %s", q.name).WithDetails(err.Error())
			}
			*q.dest = &id
		}
	}

	for _, q := range []struct {
		name string
		dest **time.Time
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		if raw := query.Get(q.name); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return filter, errors.NewAppErrorf(errors.InvalidInput, "invalid %s", q.name).WithDetails(err.Error())
			}
			if q.name == "end_date" {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			*q.dest = &t
		}
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, errors.NewAppError(errors.InvalidInput, "page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := query.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return filter, errors.NewAppError(errors.InvalidInput, "size must be a positive integer")
		}
		filter.Size = size
	}

	return filter, nil
}

func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	expenseID, appErr := pathUUID(mux.Vars(r), "expense_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	accountID, appErr := parseOptionalUUID(req.AccountID, "account_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	categoryID, appErr := parseOptionalUUID(req.CategoryID, "category_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	updateReq := &service.UpdateExpenseRequest{
		AccountID:  accountID,
		CategoryID: categoryID,
		Memo:       req.Memo,
		ExpenseAt:  req.ExpenseAt,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
			return
		}
		updateReq.Amount = &amount
	}

	expense, err := h.expenseService.UpdateExpense(userID, expenseID, updateReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	expenseID, appErr := pathUUID(mux.Vars(r), "expense_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.expenseService.DeleteExpense(userID, expenseID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
