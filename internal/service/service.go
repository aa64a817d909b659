package service

import (
	"context"
	"time"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/fine"
)

type BorrowService interface {
	// Request creates a PENDING claim. Inventory is untouched until
	// approval so unapproved requests never hold copies.
	Request(ctx context.Context, caller domain.Caller, bookID int32) (*domain.BorrowRecord, error)
	// Approve reserves a copy and transitions PENDING -> BORROWED with a
	// due date loanDays from now. Overseer only.
	Approve(ctx context.Context, caller domain.Caller, requestID, loanDays int32) (*domain.BorrowRecord, error)
	// Reject transitions PENDING -> REJECTED. Overseer only.
	Reject(ctx context.Context, caller domain.Caller, requestID int32, reason string) (*domain.BorrowRecord, error)
	// LibrarianDirectBorrow is request+approve in one step on behalf of
	// a borrower. Overseer only.
	LibrarianDirectBorrow(ctx context.Context, caller domain.Caller, bookID, userID, loanDays int32) (*domain.BorrowRecord, error)
	// Return closes out a loan, assessing any fine and handing positive
	// fines to settlement. The returned intent is nil when no fine was
	// due or when settlement initiation must be retried later.
	Return(ctx context.Context, caller domain.Caller, recordID int32) (*domain.BorrowRecord, *domain.PaymentIntent, error)
	// ReturnByBook resolves the active loan for (userID, bookID) and
	// returns it. Non-overseers may only return their own loans.
	ReturnByBook(ctx context.Context, caller domain.Caller, userID, bookID int32) (*domain.BorrowRecord, *domain.PaymentIntent, error)
	// WaiveFine closes a returned-but-unsettled record without payment.
	// Overseer only.
	WaiveFine(ctx context.Context, caller domain.Caller, recordID int32) (*domain.BorrowRecord, error)
	// DeleteRecord hard-deletes a terminal record. Admin only.
	DeleteRecord(ctx context.Context, caller domain.Caller, recordID int32) error

	GetMyBorrows(ctx context.Context, caller domain.Caller, page, pageSize int32) ([]domain.BorrowRecord, int32, error)
	GetMyRequests(ctx context.Context, caller domain.Caller, page, pageSize int32) ([]domain.BorrowRecord, int32, error)
	GetAllBorrows(ctx context.Context, caller domain.Caller, status string, page, pageSize int32) ([]domain.BorrowRecord, int32, error)
	// GetFine returns the advisory fine for an open loan as of now, or
	// the assessed fine for a returned one.
	GetFine(ctx context.Context, caller domain.Caller, recordID int32) (int32, error)
	// GetFineByBook resolves the caller's open loan for a book and
	// returns the advisory fine as of now.
	GetFineByBook(ctx context.Context, caller domain.Caller, bookID int32) (int32, error)
	GetFinePolicy() fine.Policy
}

type SettlementService interface {
	// Initiate opens a payment intent for a returned record's fine and
	// requests a gateway session. Gateway faults mark the intent FAILED
	// and surface as retryable; retry policy is the caller's.
	Initiate(ctx context.Context, borrowID, amountCents int32) (*domain.PaymentIntent, error)
	// Verify handles the asynchronous gateway callback, idempotently
	// keyed on the gateway reference.
	Verify(ctx context.Context, gatewayRef string, reportedAmountCents int32, reportedStatus string) (*domain.PaymentIntent, error)
	// FlagStale reports unresolved intents older than cutoff and
	// escalates them for manual reconciliation.
	FlagStale(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error)
}

type InventoryService interface {
	// Sync seeds or refreshes a title's counters from the catalog
	// service. Overseer only.
	Sync(ctx context.Context, caller domain.Caller, bookID int32) (*domain.BookInventory, error)
	Get(ctx context.Context, bookID int32) (*domain.BookInventory, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

type EmailService interface {
	SendBorrowApproved(ctx context.Context, email, title string, dueDate time.Time) error
	SendBorrowRejected(ctx context.Context, email, title, reason string) error
	SendFineAssessed(ctx context.Context, email, title string, amountCents int32, checkoutURL string) error
	SendFineSettled(ctx context.Context, email, title string, amountCents int32) error
	SendOverdueReminder(ctx context.Context, email, title string, dueDate time.Time, accruedCents int32) error
	SendSettlementEscalation(ctx context.Context, adminEmail, subject, message string) error
}
