package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/logger"
)

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode response", "error", err)
		}
	}
}

// writeError maps domain errors onto HTTP statuses. Retryable faults
// carry a marker so callers know a fresh attempt is sensible.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoActiveLoan):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateActiveClaim),
		errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrRecordNotTerminal),
		errors.Is(err, domain.ErrNoCopiesAvailable),
		errors.Is(err, domain.ErrSettlementInProgress),
		errors.Is(err, domain.ErrConflictingSettlement),
		errors.Is(err, domain.ErrAmountMismatch):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrZeroAmount), errors.Is(err, domain.ErrLoanDaysOutOfRange):
		status = http.StatusBadRequest
	case domain.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Retryable: domain.IsRetryable(err)})
}
