package http

import (
	"encoding/json"
	"net/http"

	"library-lending-backend/internal/logger"
	"library-lending-backend/internal/service"
)

type PaymentHandler struct {
	settlementSvc service.SettlementService
}

func NewPaymentHandler(settlementSvc service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementSvc: settlementSvc}
}

type initiatePaymentBody struct {
	BorrowID    int32 `json:"borrow_id"`
	AmountCents int32 `json:"amount_cents"`
}

// Initiate opens (or re-opens after a gateway fault) a payment session
// for a returned record's fine.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var body initiatePaymentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BorrowID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "borrow_id is required"})
		return
	}

	intent, err := h.settlementSvc.Initiate(r.Context(), body.BorrowID, body.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

type gatewayCallbackBody struct {
	Reference   string `json:"reference"`
	AmountCents int32  `json:"amount_cents"`
	Status      string `json:"status"`
}

// Callback receives the asynchronous status report from the payment
// gateway. It is unauthenticated; the gateway reference is the key.
// Duplicate deliveries are absorbed, so we always acknowledge replays
// the gateway might retry.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var body gatewayCallbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reference == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reference is required"})
		return
	}

	logger.Info("Gateway callback received", "reference", body.Reference, "status", body.Status)

	intent, err := h.settlementSvc.Verify(r.Context(), body.Reference, body.AmountCents, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}
