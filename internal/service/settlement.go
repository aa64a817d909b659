package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/gateway"
	"library-lending-backend/internal/logger"
	"library-lending-backend/internal/repository"
)

type settlementService struct {
	paymentRepo repository.PaymentRepository
	borrowRepo  repository.BorrowRepository
	userRepo    repository.UserRepository
	invRepo     repository.InventoryRepository
	noteRepo    repository.NotificationRepository
	emailSvc    EmailService
	gw          gateway.Gateway
}

func NewSettlementService(
	paymentRepo repository.PaymentRepository,
	borrowRepo repository.BorrowRepository,
	userRepo repository.UserRepository,
	invRepo repository.InventoryRepository,
	noteRepo repository.NotificationRepository,
	emailSvc EmailService,
	gw gateway.Gateway,
) SettlementService {
	return &settlementService{
		paymentRepo: paymentRepo,
		borrowRepo:  borrowRepo,
		userRepo:    userRepo,
		invRepo:     invRepo,
		noteRepo:    noteRepo,
		emailSvc:    emailSvc,
		gw:          gw,
	}
}

func (s *settlementService) Initiate(ctx context.Context, borrowID, amountCents int32) (*domain.PaymentIntent, error) {
	if amountCents <= 0 {
		return nil, domain.ErrZeroAmount
	}

	rec, err := s.borrowRepo.GetByID(ctx, borrowID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.BorrowStatusReturned || rec.SettledOn != nil {
		return nil, fmt.Errorf("borrow record %d has no unsettled fine", borrowID)
	}
	// The settlement amount is pinned to the fine computed at return
	// time; anything else would drift from what the borrower owes.
	if amountCents != rec.FineAmountCents {
		return nil, domain.ErrAmountMismatch
	}
	if confirmed, err := s.paymentRepo.GetConfirmedByBorrowID(ctx, borrowID); err == nil && confirmed != nil {
		return nil, domain.ErrConflictingSettlement
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// One intent in flight at a time; a second one racing the first to
	// confirmation is how double charges happen.
	if open, err := s.paymentRepo.GetOpenByBorrowID(ctx, borrowID); err == nil && open != nil {
		return nil, domain.ErrSettlementInProgress
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	intent := &domain.PaymentIntent{
		BorrowID:    borrowID,
		AmountCents: amountCents,
		Status:      domain.PaymentStatusInitiated,
		ExternalID:  uuid.New().String(),
		Provider:    s.gw.Name(),
		CreatedOn:   time.Now(),
	}
	if err := s.paymentRepo.Create(ctx, intent); err != nil {
		return nil, err
	}

	req := gateway.CreateSessionRequest{
		ExternalID:  intent.ExternalID,
		AmountCents: amountCents,
		Description: fmt.Sprintf("Library fine for borrow record %d", borrowID),
	}
	if user, err := s.userRepo.GetByID(ctx, rec.UserID); err == nil {
		req.PayerEmail = user.Email
	}

	session, err := s.gw.CreateSession(ctx, req)
	if err != nil {
		// A dead intent; the caller opens a fresh one when it retries.
		if failErr := s.paymentRepo.MarkFailed(ctx, intent.ID); failErr != nil {
			logger.Error("Failed to mark intent failed", "intent_id", intent.ID, "error", failErr)
		}
		intent.Status = domain.PaymentStatusFailed
		return nil, err
	}

	if err := s.paymentRepo.SetVerifying(ctx, intent.ID, session.Reference); err != nil {
		return nil, err
	}
	intent.Status = domain.PaymentStatusVerifying
	intent.GatewayReference = session.Reference

	logger.Info("Payment intent opened", "intent_id", intent.ID, "borrow_id", borrowID,
		"amount_cents", amountCents, "provider", intent.Provider, "reference", session.Reference)
	return intent, nil
}

func (s *settlementService) Verify(ctx context.Context, gatewayRef string, reportedAmountCents int32, reportedStatus string) (*domain.PaymentIntent, error) {
	intent, err := s.paymentRepo.GetByGatewayReference(ctx, gatewayRef)
	if err != nil {
		return nil, err
	}

	success, err := parseGatewayStatus(reportedStatus)
	if err != nil {
		return nil, err
	}

	// Terminal intents: identical replays are no-ops, anything else is
	// a conflict that a human has to look at.
	if intent.Status == domain.PaymentStatusConfirmed {
		if success && reportedAmountCents == intent.AmountCents {
			return intent, nil
		}
		s.escalate(ctx, intent, fmt.Sprintf(
			"Callback for confirmed intent %d reported status=%s amount=%d (expected amount %d)",
			intent.ID, reportedStatus, reportedAmountCents, intent.AmountCents))
		return nil, domain.ErrConflictingSettlement
	}
	if intent.Status == domain.PaymentStatusFailed {
		if !success {
			return intent, nil
		}
		// A success report for an intent we already wrote off. Not
		// auto-resolved: confirming it blindly risks double-settling
		// against a newer intent.
		s.escalate(ctx, intent, fmt.Sprintf(
			"Success callback for failed intent %d (reference %s)", intent.ID, gatewayRef))
		return nil, domain.ErrConflictingSettlement
	}

	if !success {
		if err := s.paymentRepo.MarkFailed(ctx, intent.ID); err != nil {
			return nil, err
		}
		intent.Status = domain.PaymentStatusFailed
		logger.Info("Payment intent failed", "intent_id", intent.ID, "reported_status", reportedStatus)
		return intent, nil
	}

	if reportedAmountCents != intent.AmountCents {
		// Never auto-corrected; collecting the wrong amount either
		// double-charges or under-collects.
		if err := s.paymentRepo.MarkFailed(ctx, intent.ID); err != nil {
			return nil, err
		}
		intent.Status = domain.PaymentStatusFailed
		s.escalate(ctx, intent, fmt.Sprintf(
			"Amount mismatch on intent %d: gateway reported %d, intent holds %d",
			intent.ID, reportedAmountCents, intent.AmountCents))
		return nil, domain.ErrAmountMismatch
	}

	now := time.Now()
	won, err := s.paymentRepo.ConfirmIfVerifying(ctx, intent.ID, now)
	if err != nil {
		if errors.Is(err, domain.ErrConflictingSettlement) {
			// The confirmed-once index blocked us: another intent already
			// settled this borrow.
			s.escalate(ctx, intent, fmt.Sprintf(
				"Confirmation of intent %d blocked: borrow %d already has a confirmed intent",
				intent.ID, intent.BorrowID))
		}
		return nil, err
	}
	if !won {
		// Another delivery of the same callback got there first.
		return s.paymentRepo.GetByID(ctx, intent.ID)
	}
	intent.Status = domain.PaymentStatusConfirmed
	intent.ConfirmedOn = &now

	// Finalize the borrow record's closure. Replays never reach this
	// point, so finding the record already settled means money was
	// collected against a borrow that a waiver or another intent closed.
	if err := s.borrowRepo.MarkSettled(ctx, intent.BorrowID, now, nil); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.escalate(ctx, intent, fmt.Sprintf(
				"Intent %d confirmed but borrow %d was already settled", intent.ID, intent.BorrowID))
			return nil, domain.ErrConflictingSettlement
		}
		logger.Error("Failed to close borrow record after confirmation", "borrow_id", intent.BorrowID, "error", err)
	}

	logger.Info("Payment confirmed", "intent_id", intent.ID, "borrow_id", intent.BorrowID, "amount_cents", intent.AmountCents)
	s.notifySettled(ctx, intent)
	return intent, nil
}

func (s *settlementService) FlagStale(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error) {
	stale, err := s.paymentRepo.ListStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, intent := range stale {
		s.escalate(ctx, &intent, fmt.Sprintf(
			"Intent %d for borrow %d stuck in %s since %s",
			intent.ID, intent.BorrowID, intent.Status, intent.CreatedOn.Format(time.RFC3339)))
	}
	return stale, nil
}

func parseGatewayStatus(reported string) (bool, error) {
	switch strings.ToUpper(reported) {
	case "PAID", "CONFIRMED", "SUCCESS", "SUCCESSFUL":
		return true, nil
	case "FAILED", "EXPIRED", "CANCELLED", "DECLINED":
		return false, nil
	default:
		return false, fmt.Errorf("unknown gateway status %q", reported)
	}
}

// escalate routes an integrity fault to the admins for manual
// reconciliation. Nothing here mutates settlement state.
func (s *settlementService) escalate(ctx context.Context, intent *domain.PaymentIntent, detail string) {
	logger.Error("Settlement escalation", "intent_id", intent.ID, "borrow_id", intent.BorrowID, "detail", detail)

	admins, err := s.userRepo.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		logger.Error("Failed to list admins for escalation", "error", err)
		return
	}
	for _, admin := range admins {
		if err := s.emailSvc.SendSettlementEscalation(ctx, admin.Email, "Settlement requires manual review", detail); err != nil {
			logger.Warn("Escalation email failed", "admin_id", admin.ID, "error", err)
		}
		note := &domain.Notification{
			UserID:  admin.ID,
			Title:   "Settlement requires manual review",
			Message: detail,
			Attributes: map[string]string{
				"type":      "SETTLEMENT_ESCALATION",
				"intent_id": fmt.Sprintf("%d", intent.ID),
			},
		}
		if err := s.noteRepo.Create(ctx, note); err != nil {
			logger.Warn("Escalation notification failed", "admin_id", admin.ID, "error", err)
		}
	}
}

func (s *settlementService) notifySettled(ctx context.Context, intent *domain.PaymentIntent) {
	rec, err := s.borrowRepo.GetByID(ctx, intent.BorrowID)
	if err != nil {
		return
	}

	bookTitle := fmt.Sprintf("book %d", rec.BookID)
	if inv, err := s.invRepo.GetByBookID(ctx, rec.BookID); err == nil {
		bookTitle = inv.Title
	}
	if user, err := s.userRepo.GetByID(ctx, rec.UserID); err == nil {
		if err := s.emailSvc.SendFineSettled(ctx, user.Email, bookTitle, intent.AmountCents); err != nil {
			logger.Warn("Settlement email failed", "intent_id", intent.ID, "error", err)
		}
	}

	note := &domain.Notification{
		UserID:  rec.UserID,
		Title:   "Fine Settled",
		Message: fmt.Sprintf("Your fine of %d cents for %s is settled", intent.AmountCents, bookTitle),
		Attributes: map[string]string{
			"type":      "FINE_SETTLED",
			"intent_id": fmt.Sprintf("%d", intent.ID),
		},
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		logger.Warn("Settlement notification failed", "intent_id", intent.ID, "error", err)
	}
}
