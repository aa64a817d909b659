package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"library-lending-backend/internal/security"
	"library-lending-backend/internal/service"
)

// NewRouter assembles the API surface. Everything under /api/v1 requires
// a bearer token except the gateway callback, which is keyed on the
// gateway reference instead.
func NewRouter(
	tokens security.TokenManager,
	borrowSvc service.BorrowService,
	settlementSvc service.SettlementService,
	inventorySvc service.InventoryService,
	notificationSvc service.NotificationService,
) *mux.Router {
	borrowH := NewBorrowHandler(borrowSvc)
	paymentH := NewPaymentHandler(settlementSvc)
	inventoryH := NewInventoryHandler(inventorySvc)
	notificationH := NewNotificationHandler(notificationSvc)

	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Gateway callbacks arrive without our tokens.
	r.HandleFunc("/api/v1/payments/callback", paymentH.Callback).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tokens))

	api.HandleFunc("/borrows", borrowH.Request).Methods(http.MethodPost)
	api.HandleFunc("/borrows/direct", borrowH.DirectBorrow).Methods(http.MethodPost)
	api.HandleFunc("/borrows/return", borrowH.Return).Methods(http.MethodPost)
	api.HandleFunc("/borrows/{id:[0-9]+}/approve", borrowH.Approve).Methods(http.MethodPost)
	api.HandleFunc("/borrows/{id:[0-9]+}/reject", borrowH.Reject).Methods(http.MethodPost)
	api.HandleFunc("/borrows/{id:[0-9]+}/waive", borrowH.WaiveFine).Methods(http.MethodPost)
	api.HandleFunc("/borrows/{id:[0-9]+}/fine", borrowH.GetFine).Methods(http.MethodGet)
	api.HandleFunc("/books/{bookId:[0-9]+}/fine", borrowH.GetFineByBook).Methods(http.MethodGet)
	api.HandleFunc("/borrows/{id:[0-9]+}", borrowH.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/borrows/mine", borrowH.MyBorrows).Methods(http.MethodGet)
	api.HandleFunc("/borrows/requests/mine", borrowH.MyRequests).Methods(http.MethodGet)
	api.HandleFunc("/borrows", borrowH.AllBorrows).Methods(http.MethodGet)
	api.HandleFunc("/fine-policy", borrowH.GetFinePolicy).Methods(http.MethodGet)

	api.HandleFunc("/payments", paymentH.Initiate).Methods(http.MethodPost)

	api.HandleFunc("/inventory/{bookId:[0-9]+}", inventoryH.Get).Methods(http.MethodGet)
	api.HandleFunc("/inventory/{bookId:[0-9]+}/sync", inventoryH.Sync).Methods(http.MethodPost)

	api.HandleFunc("/notifications", notificationH.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id:[0-9]+}/read", notificationH.MarkAsRead).Methods(http.MethodPost)

	return r
}
