package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"library-lending-backend/internal/service"
)

type BorrowHandler struct {
	borrowSvc service.BorrowService
}

func NewBorrowHandler(borrowSvc service.BorrowService) *BorrowHandler {
	return &BorrowHandler{borrowSvc: borrowSvc}
}

type requestBorrowBody struct {
	BookID int32 `json:"book_id"`
}

func (h *BorrowHandler) Request(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}

	var body requestBorrowBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BookID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "book_id is required"})
		return
	}

	rec, err := h.borrowSvc.Request(r.Context(), caller, body.BookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type approveBody struct {
	LoanDays int32 `json:"loan_days"`
}

func (h *BorrowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record id"})
		return
	}

	var body approveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec, err := h.borrowSvc.Approve(r.Context(), caller, id, body.LoanDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *BorrowHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record id"})
		return
	}

	var body rejectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec, err := h.borrowSvc.Reject(r.Context(), caller, id, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type directBorrowBody struct {
	BookID   int32 `json:"book_id"`
	UserID   int32 `json:"user_id"`
	LoanDays int32 `json:"loan_days"`
}

func (h *BorrowHandler) DirectBorrow(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}

	var body directBorrowBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BookID == 0 || body.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "book_id and user_id are required"})
		return
	}

	rec, err := h.borrowSvc.LibrarianDirectBorrow(r.Context(), caller, body.BookID, body.UserID, body.LoanDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type returnBody struct {
	RecordID int32 `json:"record_id"`
	BookID   int32 `json:"book_id"`
	UserID   int32 `json:"user_id"`
}

type returnResponse struct {
	Record  interface{} `json:"record"`
	Payment interface{} `json:"payment,omitempty"`
}

// Return accepts either a record id or a (user, book) pair, per the
// engine contract.
func (h *BorrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}

	var body returnBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if body.RecordID == 0 && body.BookID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "record_id or book_id is required"})
		return
	}

	var (
		rec     interface{}
		payment interface{}
		err     error
	)
	if body.RecordID != 0 {
		rec, payment, err = h.borrowSvc.Return(r.Context(), caller, body.RecordID)
	} else {
		rec, payment, err = h.borrowSvc.ReturnByBook(r.Context(), caller, body.UserID, body.BookID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse{Record: rec, Payment: payment})
}

func (h *BorrowHandler) WaiveFine(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record id"})
		return
	}

	rec, err := h.borrowSvc.WaiveFine(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *BorrowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record id"})
		return
	}

	if err := h.borrowSvc.DeleteRecord(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type listResponse struct {
	Records interface{} `json:"records"`
	Total   int32       `json:"total"`
}

func (h *BorrowHandler) MyBorrows(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}

	page, pageSize := pagination(r)
	recs, total, err := h.borrowSvc.GetMyBorrows(r.Context(), caller, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Records: recs, Total: total})
}

func (h *BorrowHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}

	page, pageSize := pagination(r)
	recs, total, err := h.borrowSvc.GetMyRequests(r.Context(), caller, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Records: recs, Total: total})
}

func (h *BorrowHandler) AllBorrows(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}

	page, pageSize := pagination(r)
	status := r.URL.Query().Get("status")
	recs, total, err := h.borrowSvc.GetAllBorrows(r.Context(), caller, status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Records: recs, Total: total})
}

type fineResponse struct {
	RecordID    int32 `json:"record_id"`
	AmountCents int32 `json:"amount_cents"`
}

func (h *BorrowHandler) GetFine(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid record id"})
		return
	}

	amount, err := h.borrowSvc.GetFine(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fineResponse{RecordID: id, AmountCents: amount})
}

func (h *BorrowHandler) GetFineByBook(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no caller identity"})
		return
	}
	bookID, err := pathID(r, "bookId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid book id"})
		return
	}

	amount, err := h.borrowSvc.GetFineByBook(r.Context(), caller, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int32{"book_id": bookID, "amount_cents": amount})
}

func (h *BorrowHandler) GetFinePolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.borrowSvc.GetFinePolicy())
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}

func pagination(r *http.Request) (page, pageSize int32) {
	page, pageSize = 1, 20
	if v, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 32); err == nil && v > 0 {
		page = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("page_size"), 10, 32); err == nil && v > 0 && v <= 100 {
		pageSize = int32(v)
	}
	return page, pageSize
}
