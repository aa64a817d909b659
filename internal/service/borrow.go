package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/fine"
	"library-lending-backend/internal/logger"
	"library-lending-backend/internal/repository"
)

type borrowService struct {
	borrowRepo  repository.BorrowRepository
	invRepo     repository.InventoryRepository
	userRepo    repository.UserRepository
	noteRepo    repository.NotificationRepository
	settlement  SettlementService
	emailSvc    EmailService
	policy      fine.Policy
	defaultLoan int32
	maxLoan     int32
}

func NewBorrowService(
	borrowRepo repository.BorrowRepository,
	invRepo repository.InventoryRepository,
	userRepo repository.UserRepository,
	noteRepo repository.NotificationRepository,
	settlement SettlementService,
	emailSvc EmailService,
	policy fine.Policy,
	defaultLoanDays, maxLoanDays int32,
) BorrowService {
	return &borrowService{
		borrowRepo:  borrowRepo,
		invRepo:     invRepo,
		userRepo:    userRepo,
		noteRepo:    noteRepo,
		settlement:  settlement,
		emailSvc:    emailSvc,
		policy:      policy,
		defaultLoan: defaultLoanDays,
		maxLoan:     maxLoanDays,
	}
}

// checkLoanDays substitutes the configured default for an omitted loan
// length and bounds-checks the rest.
func (s *borrowService) checkLoanDays(loanDays int32) (int32, error) {
	if loanDays == 0 {
		return s.defaultLoan, nil
	}
	if loanDays < 0 || loanDays > s.maxLoan {
		return 0, fmt.Errorf("%w: must be between 1 and %d", domain.ErrLoanDaysOutOfRange, s.maxLoan)
	}
	return loanDays, nil
}

func (s *borrowService) Request(ctx context.Context, caller domain.Caller, bookID int32) (*domain.BorrowRecord, error) {
	if _, err := s.invRepo.GetByBookID(ctx, bookID); err != nil {
		return nil, err
	}

	existing, err := s.borrowRepo.GetActiveClaim(ctx, caller.UserID, bookID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateActiveClaim
	}

	rec := &domain.BorrowRecord{
		BookID:      bookID,
		UserID:      caller.UserID,
		Status:      domain.BorrowStatusPending,
		RequestedOn: time.Now(),
	}
	if err := s.borrowRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	logger.Info("Borrow request created", "record_id", rec.ID, "user_id", caller.UserID, "book_id", bookID)
	return rec, nil
}

func (s *borrowService) Approve(ctx context.Context, caller domain.Caller, requestID, loanDays int32) (*domain.BorrowRecord, error) {
	if !caller.Role.IsOverseer() {
		return nil, domain.ErrUnauthorized
	}
	loanDays, err := s.checkLoanDays(loanDays)
	if err != nil {
		return nil, err
	}

	rec, err := s.borrowRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.BorrowStatusPending {
		return nil, domain.ErrNotPending
	}

	// Reserve first. If the record transition then loses a race, the
	// compensating Release below keeps the counter honest; the record
	// itself stays PENDING on any failure so the librarian can act again.
	if err := s.invRepo.Reserve(ctx, rec.BookID); err != nil {
		return nil, err
	}

	now := time.Now()
	dueDate := now.AddDate(0, 0, int(loanDays))
	if err := s.borrowRepo.ApproveIfPending(ctx, requestID, caller.UserID, now, dueDate); err != nil {
		if relErr := s.invRepo.Release(ctx, rec.BookID); relErr != nil {
			logger.Error("Compensating release failed", "book_id", rec.BookID, "error", relErr)
		}
		return nil, err
	}

	rec.Status = domain.BorrowStatusBorrowed
	rec.ApprovedOn = &now
	rec.ApprovedBy = &caller.UserID
	rec.DueDate = &dueDate

	s.notifyBorrower(ctx, rec, "Borrow Approved",
		fmt.Sprintf("Your borrow request was approved, due back on %s", dueDate.Format("2006-01-02")),
		func(email, title string) error {
			return s.emailSvc.SendBorrowApproved(ctx, email, title, dueDate)
		})

	return rec, nil
}

func (s *borrowService) Reject(ctx context.Context, caller domain.Caller, requestID int32, reason string) (*domain.BorrowRecord, error) {
	if !caller.Role.IsOverseer() {
		return nil, domain.ErrUnauthorized
	}

	rec, err := s.borrowRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.borrowRepo.RejectIfPending(ctx, requestID, caller.UserID, reason); err != nil {
		return nil, err
	}

	rec.Status = domain.BorrowStatusRejected
	rec.ApprovedBy = &caller.UserID
	rec.RejectionReason = reason

	s.notifyBorrower(ctx, rec, "Borrow Rejected",
		fmt.Sprintf("Your borrow request was rejected: %s", reason),
		func(email, title string) error {
			return s.emailSvc.SendBorrowRejected(ctx, email, title, reason)
		})

	return rec, nil
}

func (s *borrowService) LibrarianDirectBorrow(ctx context.Context, caller domain.Caller, bookID, userID, loanDays int32) (*domain.BorrowRecord, error) {
	if !caller.Role.IsOverseer() {
		return nil, domain.ErrUnauthorized
	}
	loanDays, err := s.checkLoanDays(loanDays)
	if err != nil {
		return nil, err
	}

	existing, err := s.borrowRepo.GetActiveClaim(ctx, userID, bookID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateActiveClaim
	}

	if err := s.invRepo.Reserve(ctx, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	dueDate := now.AddDate(0, 0, int(loanDays))
	rec := &domain.BorrowRecord{
		BookID:      bookID,
		UserID:      userID,
		Status:      domain.BorrowStatusBorrowed,
		RequestedOn: now,
		ApprovedOn:  &now,
		ApprovedBy:  &caller.UserID,
		DueDate:     &dueDate,
	}
	if err := s.borrowRepo.Create(ctx, rec); err != nil {
		// Hand the reserved copy back; the loan never came into being.
		if relErr := s.invRepo.Release(ctx, bookID); relErr != nil {
			logger.Error("Compensating release failed", "book_id", bookID, "error", relErr)
		}
		return nil, err
	}

	logger.Info("Direct borrow recorded", "record_id", rec.ID, "user_id", userID, "approver_id", caller.UserID)
	return rec, nil
}

func (s *borrowService) Return(ctx context.Context, caller domain.Caller, recordID int32) (*domain.BorrowRecord, *domain.PaymentIntent, error) {
	rec, err := s.borrowRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	if !caller.Role.IsOverseer() && rec.UserID != caller.UserID {
		return nil, nil, domain.ErrUnauthorized
	}
	return s.doReturn(ctx, rec)
}

func (s *borrowService) ReturnByBook(ctx context.Context, caller domain.Caller, userID, bookID int32) (*domain.BorrowRecord, *domain.PaymentIntent, error) {
	if userID == 0 {
		userID = caller.UserID
	}
	if !caller.Role.IsOverseer() && userID != caller.UserID {
		return nil, nil, domain.ErrUnauthorized
	}
	rec, err := s.borrowRepo.GetActiveLoan(ctx, userID, bookID)
	if err != nil {
		return nil, nil, err
	}
	return s.doReturn(ctx, rec)
}

func (s *borrowService) doReturn(ctx context.Context, rec *domain.BorrowRecord) (*domain.BorrowRecord, *domain.PaymentIntent, error) {
	if rec.Status != domain.BorrowStatusBorrowed || rec.DueDate == nil {
		return nil, nil, domain.ErrNoActiveLoan
	}

	// Server clock only; client timestamps never enter the computation.
	now := time.Now()
	assessed := fine.Compute(*rec.DueDate, now, s.policy)

	if err := s.borrowRepo.ReturnIfBorrowed(ctx, rec.ID, now, assessed); err != nil {
		return nil, nil, err
	}
	if err := s.invRepo.Release(ctx, rec.BookID); err != nil {
		logger.Error("Inventory release failed on return", "book_id", rec.BookID, "error", err)
	}

	rec.Status = domain.BorrowStatusReturned
	rec.ReturnedOn = &now
	rec.FineAmountCents = assessed

	if assessed == 0 {
		// Nothing to settle; the record closes with the return.
		if err := s.borrowRepo.MarkSettled(ctx, rec.ID, now, nil); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		rec.SettledOn = &now
		logger.Info("Loan returned with no fine", "record_id", rec.ID)
		return rec, nil, nil
	}

	logger.Info("Fine assessed on return", "record_id", rec.ID, "amount_cents", assessed)

	s.notifyBorrower(ctx, rec, "Fine Assessed",
		fmt.Sprintf("A fine of %d cents was assessed on your return; please settle it", assessed),
		func(email, title string) error {
			return s.emailSvc.SendFineAssessed(ctx, email, title, assessed, "")
		})

	intent, err := s.settlement.Initiate(ctx, rec.ID, assessed)
	if err != nil {
		// The return stands; the fine stays unsettled and a fresh
		// initiate can be attempted once the gateway recovers.
		logger.Warn("Settlement initiation failed after return", "record_id", rec.ID, "retryable", domain.IsRetryable(err), "error", err)
		return rec, nil, nil
	}

	return rec, intent, nil
}

func (s *borrowService) WaiveFine(ctx context.Context, caller domain.Caller, recordID int32) (*domain.BorrowRecord, error) {
	if !caller.Role.IsOverseer() {
		return nil, domain.ErrUnauthorized
	}

	rec, err := s.borrowRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.BorrowStatusReturned || rec.SettledOn != nil {
		return nil, domain.ErrNoActiveLoan
	}

	now := time.Now()
	if err := s.borrowRepo.MarkSettled(ctx, recordID, now, &caller.UserID); err != nil {
		return nil, err
	}
	rec.SettledOn = &now
	rec.WaivedBy = &caller.UserID

	logger.Info("Fine waived", "record_id", recordID, "waived_by", caller.UserID, "amount_cents", rec.FineAmountCents)
	return rec, nil
}

func (s *borrowService) DeleteRecord(ctx context.Context, caller domain.Caller, recordID int32) error {
	if caller.Role != domain.RoleAdmin {
		return domain.ErrUnauthorized
	}

	rec, err := s.borrowRepo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	// Deleting an in-flight record would orphan its reservation's
	// accounting trail.
	if !rec.Status.IsTerminal() {
		return domain.ErrRecordNotTerminal
	}

	return s.borrowRepo.Delete(ctx, recordID)
}

func (s *borrowService) GetMyBorrows(ctx context.Context, caller domain.Caller, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	recs, count, err := s.borrowRepo.ListByUser(ctx, caller.UserID,
		[]domain.BorrowStatus{domain.BorrowStatusBorrowed, domain.BorrowStatusReturned}, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	annotateOverdue(recs)
	return recs, count, nil
}

func (s *borrowService) GetMyRequests(ctx context.Context, caller domain.Caller, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	return s.borrowRepo.ListByUser(ctx, caller.UserID,
		[]domain.BorrowStatus{domain.BorrowStatusPending, domain.BorrowStatusRejected}, page, pageSize)
}

func (s *borrowService) GetAllBorrows(ctx context.Context, caller domain.Caller, status string, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	if !caller.Role.IsOverseer() {
		return nil, 0, domain.ErrUnauthorized
	}
	recs, count, err := s.borrowRepo.ListAll(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	annotateOverdue(recs)
	return recs, count, nil
}

func (s *borrowService) GetFine(ctx context.Context, caller domain.Caller, recordID int32) (int32, error) {
	rec, err := s.borrowRepo.GetByID(ctx, recordID)
	if err != nil {
		return 0, err
	}
	if !caller.Role.IsOverseer() && rec.UserID != caller.UserID {
		return 0, domain.ErrUnauthorized
	}

	switch rec.Status {
	case domain.BorrowStatusReturned:
		return rec.FineAmountCents, nil
	case domain.BorrowStatusBorrowed:
		if rec.DueDate == nil {
			return 0, nil
		}
		// Advisory amount as of now; the binding figure is computed at
		// return time.
		return fine.Compute(*rec.DueDate, time.Now(), s.policy), nil
	default:
		return 0, nil
	}
}

func (s *borrowService) GetFineByBook(ctx context.Context, caller domain.Caller, bookID int32) (int32, error) {
	rec, err := s.borrowRepo.GetActiveLoan(ctx, caller.UserID, bookID)
	if err != nil {
		return 0, err
	}
	if rec.DueDate == nil {
		return 0, nil
	}
	return fine.Compute(*rec.DueDate, time.Now(), s.policy), nil
}

func (s *borrowService) GetFinePolicy() fine.Policy {
	return s.policy
}

// annotateOverdue applies the shared derivation rule to projections.
func annotateOverdue(recs []domain.BorrowRecord) {
	now := time.Now()
	for i := range recs {
		recs[i].Status = recs[i].EffectiveStatus(now)
	}
}

// notifyBorrower delivers best-effort email and in-app notifications.
// Failures are logged and never fail the transition.
func (s *borrowService) notifyBorrower(ctx context.Context, rec *domain.BorrowRecord, title, message string, sendEmail func(email, bookTitle string) error) {
	bookTitle := fmt.Sprintf("book %d", rec.BookID)
	if inv, err := s.invRepo.GetByBookID(ctx, rec.BookID); err == nil {
		bookTitle = inv.Title
	}

	if user, err := s.userRepo.GetByID(ctx, rec.UserID); err == nil {
		if err := sendEmail(user.Email, bookTitle); err != nil {
			logger.Warn("Notification email failed", "record_id", rec.ID, "error", err)
		}
	}

	note := &domain.Notification{
		UserID:  rec.UserID,
		Title:   title,
		Message: message,
		Attributes: map[string]string{
			"type":      "BORROW_" + string(rec.Status),
			"record_id": fmt.Sprintf("%d", rec.ID),
		},
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		logger.Warn("In-app notification failed", "record_id", rec.ID, "error", err)
	}
}
