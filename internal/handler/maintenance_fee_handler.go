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

type MaintenanceFeeHandler struct {
	feeService *service.MaintenanceFeeService
}

func NewMaintenanceFeeHandler(feeService *service.MaintenanceFeeService) *MaintenanceFeeHandler {
	return &MaintenanceFeeHandler{
		feeService: feeService,
	}
}

type FeeDetailRequest struct {
	Category    string  `json:"category"`
	ItemName    string  `json:"item_name"`
	Amount      string  `json:"amount"`
	UsageAmount *string `json:"usage_amount,omitempty"`
	UsageUnit   string  `json:"usage_unit,omitempty"`
}

type CreateFeeRecordRequest struct {
	YearMonth string             `json:"year_month"`
	Details   []FeeDetailRequest `json:"details"`
	Memo      string             `json:"memo"`
}

type PayFeeRecordRequest struct {
	AccountID string `json:"account_id"`
}

type FeeRecordResponse struct {
	ID          string             `json:"id"`
	YearMonth   string             `json:"year_month"`
	TotalAmount string             `json:"total_amount"`
	Details     []domain.FeeDetail `json:"details"`
	AccountID   *string            `json:"account_id,omitempty"`
	PaidAt      *time.Time         `json:"paid_at,omitempty"`
	Memo        string             `json:"memo,omitempty"`
}

func toFeeRecordResponse(record *domain.MaintenanceFeeRecord) FeeRecordResponse {
	resp := FeeRecordResponse{
		ID:          record.ID.String(),
		YearMonth:   record.YearMonth,
		TotalAmount: record.TotalAmount.StringFixed(2),
		Details:     record.Details,
		PaidAt:      record.PaidAt,
		Memo:        record.Memo,
	}
	if record.AccountID != nil {
		id := record.AccountID.String()
		resp.AccountID = &id
	}
	return resp
}

func (h *MaintenanceFeeHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req CreateFeeRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	details := make([]domain.FeeDetail, 0, len(req.Details))
	for _, d := range req.Details {
		amount, err := decimal.NewFromString(d.Amount)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid detail amount format").WithDetails(err.Error()))
			return
		}
		detail := domain.FeeDetail{
			Category:  d.Category,
			ItemName:  d.ItemName,
			Amount:    amount,
			UsageUnit: d.UsageUnit,
		}
		if d.UsageAmount != nil {
			usage, err := decimal.NewFromString(*d.UsageAmount)
			if err != nil {
				writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid usage_amount format").WithDetails(err.Error()))
				return
			}
			detail.UsageAmount = &usage
		}
		details = append(details, detail)
	}

	record, err := h.feeService.CreateRecord(userID, &service.CreateFeeRecordRequest{
		YearMonth: req.YearMonth,
		Details:   details,
		Memo:      req.Memo,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFeeRecordResponse(record))
}

func (h *MaintenanceFeeHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	recordID, appErr := pathUUID(mux.Vars(r), "record_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	record, err := h.feeService.GetRecord(userID, recordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeeRecordResponse(record))
}

func (h *MaintenanceFeeHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	records, err := h.feeService.ListRecords(userID, r.URL.Query().Get("year_month"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]FeeRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toFeeRecordResponse(record))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *MaintenanceFeeHandler) PayRecord(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	recordID, appErr := pathUUID(mux.Vars(r), "record_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req PayFeeRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id").WithDetails(err.Error()))
		return
	}

	record, err := h.feeService.PayRecord(userID, recordID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeeRecordResponse(record))
}

func (h *MaintenanceFeeHandler) UnpayRecord(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	recordID, appErr := pathUUID(mux.Vars(r), "record_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	record, err := h.feeService.UnpayRecord(userID, recordID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeeRecordResponse(record))
}

func (h *MaintenanceFeeHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	recordID, appErr := pathUUID(mux.Vars(r), "record_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.feeService.DeleteRecord(userID, recordID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
