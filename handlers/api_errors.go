package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/camden-git/requestsysbackend/services"
	"gorm.io/gorm"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`

	// ExistingRequestID/ExistingRequestStatus are set on duplicate_request
	// errors so the frontend can redirect to the conflicting request.
	ExistingRequestID     uint   `json:"existing_request_id,omitempty"`
	ExistingRequestStatus string `json:"existing_request_status,omitempty"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	writeAPIErrorDetail(w, httpStatus, APIErrorDetail{
		Code:   code,
		Status: strconv.Itoa(httpStatus),
		Detail: detail,
	})
}

func writeAPIErrorDetail(w http.ResponseWriter, httpStatus int, detail APIErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{Errors: []APIErrorDetail{detail}}
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteServiceError maps the core's error taxonomy onto distinct API
// errors. Forbidden, quota and duplicate failures must stay
// distinguishable for the frontend; they are never collapsed into one
// generic failure.
func WriteServiceError(w http.ResponseWriter, err error) {
	var dup *services.DuplicateRequestError
	switch {
	case errors.As(err, &dup):
		writeAPIErrorDetail(w, http.StatusConflict, APIErrorDetail{
			Code:                  "duplicate_request",
			Status:                strconv.Itoa(http.StatusConflict),
			Detail:                dup.Error(),
			ExistingRequestID:     dup.ExistingID,
			ExistingRequestStatus: string(dup.Status),
		})
	case errors.Is(err, services.ErrForbidden):
		WriteAPIError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, services.ErrQuotaExceeded):
		WriteAPIError(w, http.StatusTooManyRequests, "quota_exceeded", err.Error())
	case errors.Is(err, services.ErrIllegalTransition):
		WriteAPIError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, services.ErrRoleMissing):
		WriteAPIError(w, http.StatusInternalServerError, "role_missing", err.Error())
	case errors.Is(err, services.ErrUnavailable):
		WriteAPIError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", "resource not found")
	default:
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
