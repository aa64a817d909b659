package domain

import "time"

type BorrowStatus string

const (
	BorrowStatusPending  BorrowStatus = "PENDING"
	BorrowStatusBorrowed BorrowStatus = "BORROWED"
	BorrowStatusRejected BorrowStatus = "REJECTED"
	BorrowStatusReturned BorrowStatus = "RETURNED"

	// BorrowStatusOverdue is a read-time annotation, never persisted.
	// Use EffectiveStatus to derive it.
	BorrowStatusOverdue BorrowStatus = "OVERDUE"
)

// IsTerminal reports whether a status ends the record's lifecycle.
func (s BorrowStatus) IsTerminal() bool {
	return s == BorrowStatusRejected || s == BorrowStatusReturned
}

type BorrowRecord struct {
	ID              int32        `json:"id"`
	BookID          int32        `json:"book_id"`
	UserID          int32        `json:"user_id"`
	Status          BorrowStatus `json:"status"`
	RequestedOn     time.Time    `json:"requested_on"`
	ApprovedOn      *time.Time   `json:"approved_on,omitempty"`
	ApprovedBy      *int32       `json:"approved_by,omitempty"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	ReturnedOn      *time.Time   `json:"returned_on,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	FineAmountCents int32        `json:"fine_amount_cents"`
	SettledOn       *time.Time   `json:"settled_on,omitempty"`
	WaivedBy        *int32       `json:"waived_by,omitempty"`
}

// EffectiveStatus is the single derivation rule for the OVERDUE annotation.
// Every reader must go through it rather than comparing due dates itself.
func (r *BorrowRecord) EffectiveStatus(now time.Time) BorrowStatus {
	if r.Status == BorrowStatusBorrowed && r.DueDate != nil && now.After(*r.DueDate) {
		return BorrowStatusOverdue
	}
	return r.Status
}

// Closed reports whether the record needs no further settlement action.
// A returned record with an unpaid fine stays open until a confirmed
// payment or an overseer waiver sets SettledOn.
func (r *BorrowRecord) Closed() bool {
	if r.Status == BorrowStatusRejected {
		return true
	}
	return r.Status == BorrowStatusReturned && r.SettledOn != nil
}
