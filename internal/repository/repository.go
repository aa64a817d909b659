package repository

import (
	"context"
	"time"

	"library-lending-backend/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// InventoryRepository is the Inventory Guard. Reserve and Release are
// single conditional updates against the persisted counter, so two
// handlers racing on the last copy are arbitrated by the database, not
// by an in-process lock.
type InventoryRepository interface {
	// Reserve decrements available_copies if at least one copy remains.
	// Returns domain.ErrNoCopiesAvailable when none do.
	Reserve(ctx context.Context, bookID int32) error
	// Release increments available_copies, bounded by total_copies. It
	// must be paired 1:1 with a prior successful Reserve; the pairing is
	// tracked by the owning borrow record, not here.
	Release(ctx context.Context, bookID int32) error
	GetByBookID(ctx context.Context, bookID int32) (*domain.BookInventory, error)
	// Upsert seeds or refreshes a title's inventory from the catalog.
	// Adjusting total_copies preserves the number of copies currently
	// out on loan.
	Upsert(ctx context.Context, inv *domain.BookInventory) error
}

type BorrowRepository interface {
	Create(ctx context.Context, rec *domain.BorrowRecord) error
	GetByID(ctx context.Context, id int32) (*domain.BorrowRecord, error)
	// GetActiveClaim returns the user's PENDING or BORROWED record for a
	// book, or domain.ErrNotFound.
	GetActiveClaim(ctx context.Context, userID, bookID int32) (*domain.BorrowRecord, error)
	// GetActiveLoan returns the user's BORROWED record for a book, or
	// domain.ErrNotFound.
	GetActiveLoan(ctx context.Context, userID, bookID int32) (*domain.BorrowRecord, error)

	// ApproveIfPending transitions PENDING -> BORROWED and stamps the
	// approval fields. Returns domain.ErrNotPending if the record is no
	// longer pending; the conditional update arbitrates racing approvers.
	ApproveIfPending(ctx context.Context, id, approverID int32, approvedOn, dueDate time.Time) error
	// RejectIfPending transitions PENDING -> REJECTED with a reason.
	RejectIfPending(ctx context.Context, id, approverID int32, reason string) error
	// ReturnIfBorrowed transitions BORROWED -> RETURNED, stamping the
	// return time and assessed fine. Returns domain.ErrNoActiveLoan if
	// the record is not currently borrowed.
	ReturnIfBorrowed(ctx context.Context, id int32, returnedOn time.Time, fineCents int32) error
	// MarkSettled closes a RETURNED record once its fine is confirmed
	// paid or waived. waivedBy is nil for gateway settlements.
	MarkSettled(ctx context.Context, id int32, settledOn time.Time, waivedBy *int32) error

	Delete(ctx context.Context, id int32) error
	ListByUser(ctx context.Context, userID int32, statuses []domain.BorrowStatus, page, pageSize int32) ([]domain.BorrowRecord, int32, error)
	ListAll(ctx context.Context, status string, page, pageSize int32) ([]domain.BorrowRecord, int32, error)
	// ListDueBefore returns BORROWED records whose due date has passed,
	// for the overdue-reminder sweep.
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.BorrowRecord, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, id int32) (*domain.PaymentIntent, error)
	// GetByGatewayReference keys the verification callback; returns
	// domain.ErrNotFound for unknown references.
	GetByGatewayReference(ctx context.Context, ref string) (*domain.PaymentIntent, error)
	GetConfirmedByBorrowID(ctx context.Context, borrowID int32) (*domain.PaymentIntent, error)
	// GetOpenByBorrowID returns the borrow's INITIATED or VERIFYING
	// intent, or domain.ErrNotFound when none is in flight.
	GetOpenByBorrowID(ctx context.Context, borrowID int32) (*domain.PaymentIntent, error)

	// SetVerifying stores the gateway reference and moves
	// INITIATED -> VERIFYING.
	SetVerifying(ctx context.Context, id int32, gatewayRef string) error
	// ConfirmIfVerifying transitions VERIFYING -> CONFIRMED. Zero rows
	// affected means another callback won the race; callers treat that
	// as a replay, not an error.
	ConfirmIfVerifying(ctx context.Context, id int32, confirmedOn time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int32) error
	// ListStale returns non-terminal intents created before cutoff, for
	// manual reconciliation.
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}
