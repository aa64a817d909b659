package jobs

import (
	"context"
	"time"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/fine"
	"library-lending-backend/internal/logger"
)

// SendOverdueReminders emails every borrower holding a loan past its due
// date, quoting the fine accrued so far. The loan itself is untouched;
// overdue is a derived view, not a stored transition.
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func() {
		ctx := context.Background()
		now := time.Now()

		overdue, err := jr.store.ListDueBefore(ctx, now)
		if err != nil {
			logger.Error("Failed to list overdue loans", "error", err)
			return
		}

		sent := 0
		for _, rec := range overdue {
			if rec.DueDate == nil {
				continue
			}

			user, err := jr.store.UserRepository.GetByID(ctx, rec.UserID)
			if err != nil {
				logger.Error("Failed to load borrower for reminder", "record_id", rec.ID, "error", err)
				continue
			}

			title := "your borrowed book"
			if inv, err := jr.store.InventoryRepository.GetByBookID(ctx, rec.BookID); err == nil {
				title = inv.Title
			}

			accrued := fine.Compute(*rec.DueDate, now, jr.config.Fine)

			if err := jr.services.Email.SendOverdueReminder(ctx, user.Email, title, *rec.DueDate, accrued); err != nil {
				logger.Error("Failed to send overdue reminder", "record_id", rec.ID, "error", err)
			}

			note := &domain.Notification{
				UserID:  rec.UserID,
				Title:   "Book Overdue",
				Message: "Your loan of \"" + title + "\" is past due. Please return it to stop further fines.",
				Attributes: map[string]string{
					"record_id": itoa(rec.ID),
					"book_id":   itoa(rec.BookID),
				},
			}
			if err := jr.store.NotificationRepository.Create(ctx, note); err != nil {
				logger.Error("Failed to create overdue notification", "record_id", rec.ID, "error", err)
			}

			sent++
		}

		logger.Info("Overdue reminders sent", "count", sent, "overdue_total", len(overdue))
	})
}
