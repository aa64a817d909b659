// Package fine computes overdue penalties for returned loans.
//
// The computation is pure: the same due date, return time and policy
// always produce the same amount. Partial overdue days round up at the
// day boundary, so a loan returned one hour late is one day overdue.
// All amounts are integer cents.
package fine

import "time"

const hoursPerDay = 24

// Policy is the process-wide fine configuration. It is loaded once at
// startup and never mutated; changing it requires a restart.
type Policy struct {
	DailyRateCents  int32 `json:"daily_rate_cents" yaml:"daily_rate_cents"`
	GracePeriodDays int32 `json:"grace_period_days" yaml:"grace_period_days"`
	// MaxFineCents caps the accrued fine. Zero means no cap.
	MaxFineCents int32 `json:"max_fine_cents" yaml:"max_fine_cents"`
}

// Compute returns the fine in cents for a loan due at dueDate and
// returned at returnedAt. Early and on-time returns cost nothing, as do
// returns within the grace period.
func Compute(dueDate, returnedAt time.Time, p Policy) int32 {
	days := OverdueDays(dueDate, returnedAt)
	days -= p.GracePeriodDays
	if days <= 0 {
		return 0
	}

	amount := days * p.DailyRateCents
	if p.MaxFineCents > 0 && amount > p.MaxFineCents {
		amount = p.MaxFineCents
	}
	return amount
}

// OverdueDays returns the number of whole or partial days between
// dueDate and returnedAt, rounding up, before the grace period is
// applied. Returns 0 when returnedAt is not after dueDate.
func OverdueDays(dueDate, returnedAt time.Time) int32 {
	elapsed := returnedAt.Sub(dueDate)
	if elapsed <= 0 {
		return 0
	}

	days := int32(elapsed.Hours() / hoursPerDay)
	if elapsed%(hoursPerDay*time.Hour) > 0 {
		days++
	}
	return days
}
