package unit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/gateway"
	"library-lending-backend/internal/service"
)

func newSettlementFixture() (*MockPaymentRepo, *MockBorrowRepo, *MockUserRepo, *MockInventoryRepo, *MockNotificationRepo, *MockEmailService, *MockGateway, service.SettlementService) {
	paymentRepo := new(MockPaymentRepo)
	borrowRepo := new(MockBorrowRepo)
	userRepo := new(MockUserRepo)
	invRepo := new(MockInventoryRepo)
	noteRepo := new(MockNotificationRepo)
	emailSvc := new(MockEmailService)
	gw := new(MockGateway)

	svc := service.NewSettlementService(paymentRepo, borrowRepo, userRepo, invRepo, noteRepo, emailSvc, gw)
	return paymentRepo, borrowRepo, userRepo, invRepo, noteRepo, emailSvc, gw, svc
}

func returnedRecord() *domain.BorrowRecord {
	returnedOn := time.Now().Add(-time.Hour)
	return &domain.BorrowRecord{
		ID: 9, BookID: 7, UserID: 1,
		Status:          domain.BorrowStatusReturned,
		ReturnedOn:      &returnedOn,
		FineAmountCents: 150,
	}
}

func TestSettlementService_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		paymentRepo, borrowRepo, userRepo, _, _, _, gw, svc := newSettlementFixture()
		borrowRepo.On("GetByID", ctx, int32(9)).Return(returnedRecord(), nil)
		paymentRepo.On("GetConfirmedByBorrowID", ctx, int32(9)).Return(nil, domain.ErrNotFound)
		paymentRepo.On("GetOpenByBorrowID", ctx, int32(9)).Return(nil, domain.ErrNotFound)
		gw.On("Name").Return("checkout")
		paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.PaymentIntent")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.PaymentIntent).ID = 3
			}).Return(nil)
		userRepo.On("GetByID", ctx, int32(1)).Return(&domain.User{ID: 1, Email: "student@test.com"}, nil)
		gw.On("CreateSession", ctx, mock.AnythingOfType("gateway.CreateSessionRequest")).
			Return(&gateway.Session{Reference: "gw-ref-1", CheckoutURL: "https://pay.example.com/gw-ref-1"}, nil)
		paymentRepo.On("SetVerifying", ctx, int32(3), "gw-ref-1").Return(nil)

		intent, err := svc.Initiate(ctx, 9, 150)
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusVerifying, intent.Status)
		assert.Equal(t, "gw-ref-1", intent.GatewayReference)
		assert.NotEmpty(t, intent.ExternalID)
	})

	t.Run("Zero Amount", func(t *testing.T) {
		_, _, _, _, _, _, _, svc := newSettlementFixture()
		intent, err := svc.Initiate(ctx, 9, 0)
		assert.ErrorIs(t, err, domain.ErrZeroAmount)
		assert.Nil(t, intent)
	})

	t.Run("Amount Differs From Assessed Fine", func(t *testing.T) {
		_, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		borrowRepo.On("GetByID", ctx, int32(9)).Return(returnedRecord(), nil)

		intent, err := svc.Initiate(ctx, 9, 100)
		assert.ErrorIs(t, err, domain.ErrAmountMismatch)
		assert.Nil(t, intent)
	})

	t.Run("Already Confirmed", func(t *testing.T) {
		paymentRepo, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		borrowRepo.On("GetByID", ctx, int32(9)).Return(returnedRecord(), nil)
		paymentRepo.On("GetConfirmedByBorrowID", ctx, int32(9)).
			Return(&domain.PaymentIntent{ID: 3, Status: domain.PaymentStatusConfirmed}, nil)

		intent, err := svc.Initiate(ctx, 9, 150)
		assert.ErrorIs(t, err, domain.ErrConflictingSettlement)
		assert.Nil(t, intent)
	})

	t.Run("Second Intent While One Is Still Verifying", func(t *testing.T) {
		paymentRepo, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		borrowRepo.On("GetByID", ctx, int32(9)).Return(returnedRecord(), nil)
		paymentRepo.On("GetConfirmedByBorrowID", ctx, int32(9)).Return(nil, domain.ErrNotFound)
		paymentRepo.On("GetOpenByBorrowID", ctx, int32(9)).
			Return(&domain.PaymentIntent{ID: 3, BorrowID: 9, Status: domain.PaymentStatusVerifying}, nil)

		intent, err := svc.Initiate(ctx, 9, 150)
		assert.ErrorIs(t, err, domain.ErrSettlementInProgress)
		assert.Nil(t, intent)
		paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Gateway Fault Marks Intent Failed", func(t *testing.T) {
		paymentRepo, borrowRepo, userRepo, _, _, _, gw, svc := newSettlementFixture()
		borrowRepo.On("GetByID", ctx, int32(9)).Return(returnedRecord(), nil)
		paymentRepo.On("GetConfirmedByBorrowID", ctx, int32(9)).Return(nil, domain.ErrNotFound)
		paymentRepo.On("GetOpenByBorrowID", ctx, int32(9)).Return(nil, domain.ErrNotFound)
		gw.On("Name").Return("checkout")
		paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.PaymentIntent")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.PaymentIntent).ID = 3
			}).Return(nil)
		userRepo.On("GetByID", ctx, int32(1)).Return(&domain.User{ID: 1, Email: "student@test.com"}, nil)
		gw.On("CreateSession", ctx, mock.AnythingOfType("gateway.CreateSessionRequest")).
			Return(nil, domain.Retryable(assert.AnError))
		paymentRepo.On("MarkFailed", ctx, int32(3)).Return(nil)

		intent, err := svc.Initiate(ctx, 9, 150)
		assert.Error(t, err)
		assert.True(t, domain.IsRetryable(err))
		assert.Nil(t, intent)
		paymentRepo.AssertCalled(t, "MarkFailed", ctx, int32(3))
	})

	t.Run("Record Not Returned", func(t *testing.T) {
		_, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		borrowRepo.On("GetByID", ctx, int32(9)).
			Return(&domain.BorrowRecord{ID: 9, Status: domain.BorrowStatusBorrowed}, nil)

		intent, err := svc.Initiate(ctx, 9, 150)
		assert.Error(t, err)
		assert.Nil(t, intent)
	})
}

func TestSettlementService_Verify(t *testing.T) {
	ctx := context.Background()

	verifying := func() *domain.PaymentIntent {
		return &domain.PaymentIntent{
			ID: 3, BorrowID: 9, AmountCents: 150,
			Status:           domain.PaymentStatusVerifying,
			ExternalID:       "ext-1",
			GatewayReference: "gw-ref-1",
			Provider:         "checkout",
			CreatedOn:        time.Now().Add(-time.Minute),
		}
	}

	t.Run("Confirms And Settles", func(t *testing.T) {
		paymentRepo, borrowRepo, userRepo, invRepo, noteRepo, emailSvc, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)
		paymentRepo.On("ConfirmIfVerifying", ctx, int32(3), mock.AnythingOfType("time.Time")).Return(true, nil)
		borrowRepo.On("MarkSettled", ctx, int32(9), mock.AnythingOfType("time.Time"), (*int32)(nil)).Return(nil)
		borrowRepo.On("GetByID", ctx, int32(9)).Return(returnedRecord(), nil)
		invRepo.On("GetByBookID", ctx, int32(7)).Return(&domain.BookInventory{BookID: 7, Title: "Dune"}, nil)
		userRepo.On("GetByID", ctx, int32(1)).Return(&domain.User{ID: 1, Email: "student@test.com"}, nil)
		emailSvc.On("SendFineSettled", ctx, "student@test.com", "Dune", int32(150)).Return(nil)
		noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "PAID")
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusConfirmed, intent.Status)
		borrowRepo.AssertCalled(t, "MarkSettled", ctx, int32(9), mock.AnythingOfType("time.Time"), (*int32)(nil))
	})

	t.Run("Replay Of Confirmed Callback Is NoOp", func(t *testing.T) {
		paymentRepo, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		confirmed := verifying()
		confirmed.Status = domain.PaymentStatusConfirmed
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(confirmed, nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "PAID")
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusConfirmed, intent.Status)
		borrowRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Conflicting Report On Confirmed Intent", func(t *testing.T) {
		paymentRepo, _, userRepo, _, noteRepo, emailSvc, _, svc := newSettlementFixture()
		confirmed := verifying()
		confirmed.Status = domain.PaymentStatusConfirmed
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(confirmed, nil)
		userRepo.On("ListByRole", ctx, domain.RoleAdmin).
			Return([]domain.User{{ID: 8, Email: "admin@test.com", Role: domain.RoleAdmin}}, nil)
		emailSvc.On("SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything).Return(nil)
		noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "FAILED")
		assert.ErrorIs(t, err, domain.ErrConflictingSettlement)
		assert.Nil(t, intent)
		emailSvc.AssertCalled(t, "SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything)
	})

	t.Run("Success Report On Failed Intent Escalates", func(t *testing.T) {
		paymentRepo, _, userRepo, _, noteRepo, emailSvc, _, svc := newSettlementFixture()
		failed := verifying()
		failed.Status = domain.PaymentStatusFailed
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(failed, nil)
		userRepo.On("ListByRole", ctx, domain.RoleAdmin).
			Return([]domain.User{{ID: 8, Email: "admin@test.com", Role: domain.RoleAdmin}}, nil)
		emailSvc.On("SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything).Return(nil)
		noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "PAID")
		assert.ErrorIs(t, err, domain.ErrConflictingSettlement)
		assert.Nil(t, intent)
		paymentRepo.AssertNotCalled(t, "ConfirmIfVerifying", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure Report Marks Failed", func(t *testing.T) {
		paymentRepo, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)
		paymentRepo.On("MarkFailed", ctx, int32(3)).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "EXPIRED")
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFailed, intent.Status)
		borrowRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Amount Mismatch Escalates", func(t *testing.T) {
		paymentRepo, _, userRepo, _, noteRepo, emailSvc, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)
		paymentRepo.On("MarkFailed", ctx, int32(3)).Return(nil)
		userRepo.On("ListByRole", ctx, domain.RoleAdmin).
			Return([]domain.User{{ID: 8, Email: "admin@test.com", Role: domain.RoleAdmin}}, nil)
		emailSvc.On("SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything).Return(nil)
		noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 9999, "PAID")
		assert.ErrorIs(t, err, domain.ErrAmountMismatch)
		assert.Nil(t, intent)
	})

	t.Run("Confirmation After Borrow Already Settled Escalates", func(t *testing.T) {
		paymentRepo, borrowRepo, userRepo, _, noteRepo, emailSvc, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)
		paymentRepo.On("ConfirmIfVerifying", ctx, int32(3), mock.AnythingOfType("time.Time")).Return(true, nil)
		borrowRepo.On("MarkSettled", ctx, int32(9), mock.AnythingOfType("time.Time"), (*int32)(nil)).
			Return(domain.ErrNotFound)
		userRepo.On("ListByRole", ctx, domain.RoleAdmin).
			Return([]domain.User{{ID: 8, Email: "admin@test.com", Role: domain.RoleAdmin}}, nil)
		emailSvc.On("SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything).Return(nil)
		noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "PAID")
		assert.ErrorIs(t, err, domain.ErrConflictingSettlement)
		assert.Nil(t, intent)
		emailSvc.AssertCalled(t, "SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything)
	})

	t.Run("Confirmation Blocked By Another Confirmed Intent", func(t *testing.T) {
		paymentRepo, borrowRepo, userRepo, _, noteRepo, emailSvc, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)
		paymentRepo.On("ConfirmIfVerifying", ctx, int32(3), mock.AnythingOfType("time.Time")).
			Return(false, domain.ErrConflictingSettlement)
		userRepo.On("ListByRole", ctx, domain.RoleAdmin).
			Return([]domain.User{{ID: 8, Email: "admin@test.com", Role: domain.RoleAdmin}}, nil)
		emailSvc.On("SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything).Return(nil)
		noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "PAID")
		assert.ErrorIs(t, err, domain.ErrConflictingSettlement)
		assert.Nil(t, intent)
		borrowRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Lost Confirmation Race Re-Reads", func(t *testing.T) {
		paymentRepo, borrowRepo, _, _, _, _, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)
		paymentRepo.On("ConfirmIfVerifying", ctx, int32(3), mock.AnythingOfType("time.Time")).Return(false, nil)
		already := verifying()
		already.Status = domain.PaymentStatusConfirmed
		paymentRepo.On("GetByID", ctx, int32(3)).Return(already, nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "PAID")
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusConfirmed, intent.Status)
		borrowRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown Reference", func(t *testing.T) {
		paymentRepo, _, _, _, _, _, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "nope").Return(nil, domain.ErrNotFound)

		intent, err := svc.Verify(ctx, "nope", 150, "PAID")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, intent)
	})

	t.Run("Unknown Status String", func(t *testing.T) {
		paymentRepo, _, _, _, _, _, _, svc := newSettlementFixture()
		paymentRepo.On("GetByGatewayReference", ctx, "gw-ref-1").Return(verifying(), nil)

		intent, err := svc.Verify(ctx, "gw-ref-1", 150, "MAYBE")
		assert.Error(t, err)
		assert.Nil(t, intent)
	})
}

func TestSettlementService_FlagStale(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	paymentRepo, _, userRepo, _, noteRepo, emailSvc, _, svc := newSettlementFixture()
	stuck := domain.PaymentIntent{
		ID: 3, BorrowID: 9, AmountCents: 150,
		Status: domain.PaymentStatusVerifying, CreatedOn: time.Now().Add(-48 * time.Hour),
	}
	paymentRepo.On("ListStale", ctx, cutoff).Return([]domain.PaymentIntent{stuck}, nil)
	userRepo.On("ListByRole", ctx, domain.RoleAdmin).
		Return([]domain.User{{ID: 8, Email: "admin@test.com", Role: domain.RoleAdmin}}, nil)
	emailSvc.On("SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything).Return(nil)
	noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

	stale, err := svc.FlagStale(ctx, cutoff)
	assert.NoError(t, err)
	assert.Len(t, stale, 1)
	// Flagging never mutates the intent; it only raises the alarm.
	paymentRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
	emailSvc.AssertCalled(t, "SendSettlementEscalation", ctx, "admin@test.com", mock.Anything, mock.Anything)
}
