package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/alpaii/WhereDidAllMyMoney/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// writeServiceError unwraps AppErrors; anything else becomes a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		writeError(w, appErr)
		return
	}
	writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error()))
}

// userIDFromRequest reads the acting user from the X-User-ID header.
// Authentication itself happens upstream; this service only scopes data by
// the identity it is handed.
func userIDFromRequest(r *http.Request) (uuid.UUID, *errors.AppError) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, errors.NewAppError(errors.InvalidInput, "missing X-User-ID header")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewAppError(errors.InvalidInput, "invalid X-User-ID header").WithDetails(err.Error())
	}
	return userID, nil
}

func pathUUID(vars map[string]string, name string) (uuid.UUID, *errors.AppError) {
	id, err := uuid.Parse(vars[name])
	if err != nil {
		return uuid.Nil, errors.NewAppErrorf(errors.InvalidInput, "invalid %s", name).WithDetails(err.Error())
	}
	return id, nil
}
