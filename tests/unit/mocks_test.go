package unit

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/gateway"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// MockInventoryRepo
type MockInventoryRepo struct {
	mock.Mock
}

func (m *MockInventoryRepo) Reserve(ctx context.Context, bookID int32) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}
func (m *MockInventoryRepo) Release(ctx context.Context, bookID int32) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}
func (m *MockInventoryRepo) GetByBookID(ctx context.Context, bookID int32) (*domain.BookInventory, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookInventory), args.Error(1)
}
func (m *MockInventoryRepo) Upsert(ctx context.Context, inv *domain.BookInventory) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

// MockBorrowRepo
type MockBorrowRepo struct {
	mock.Mock
}

func (m *MockBorrowRepo) Create(ctx context.Context, rec *domain.BorrowRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
func (m *MockBorrowRepo) GetByID(ctx context.Context, id int32) (*domain.BorrowRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowRecord), args.Error(1)
}
func (m *MockBorrowRepo) GetActiveClaim(ctx context.Context, userID, bookID int32) (*domain.BorrowRecord, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowRecord), args.Error(1)
}
func (m *MockBorrowRepo) GetActiveLoan(ctx context.Context, userID, bookID int32) (*domain.BorrowRecord, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowRecord), args.Error(1)
}
func (m *MockBorrowRepo) ApproveIfPending(ctx context.Context, id, approverID int32, approvedOn, dueDate time.Time) error {
	args := m.Called(ctx, id, approverID, approvedOn, dueDate)
	return args.Error(0)
}
func (m *MockBorrowRepo) RejectIfPending(ctx context.Context, id, approverID int32, reason string) error {
	args := m.Called(ctx, id, approverID, reason)
	return args.Error(0)
}
func (m *MockBorrowRepo) ReturnIfBorrowed(ctx context.Context, id int32, returnedOn time.Time, fineCents int32) error {
	args := m.Called(ctx, id, returnedOn, fineCents)
	return args.Error(0)
}
func (m *MockBorrowRepo) MarkSettled(ctx context.Context, id int32, settledOn time.Time, waivedBy *int32) error {
	args := m.Called(ctx, id, settledOn, waivedBy)
	return args.Error(0)
}
func (m *MockBorrowRepo) Delete(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockBorrowRepo) ListByUser(ctx context.Context, userID int32, statuses []domain.BorrowStatus, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	args := m.Called(ctx, userID, statuses, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.BorrowRecord), args.Get(1).(int32), args.Error(2)
}
func (m *MockBorrowRepo) ListAll(ctx context.Context, status string, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.BorrowRecord), args.Get(1).(int32), args.Error(2)
}
func (m *MockBorrowRepo) ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.BorrowRecord, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BorrowRecord), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByID(ctx context.Context, id int32) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}
func (m *MockPaymentRepo) GetByGatewayReference(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}
func (m *MockPaymentRepo) GetConfirmedByBorrowID(ctx context.Context, borrowID int32) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, borrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}
func (m *MockPaymentRepo) GetOpenByBorrowID(ctx context.Context, borrowID int32) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, borrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}
func (m *MockPaymentRepo) SetVerifying(ctx context.Context, id int32, gatewayRef string) error {
	args := m.Called(ctx, id, gatewayRef)
	return args.Error(0)
}
func (m *MockPaymentRepo) ConfirmIfVerifying(ctx context.Context, id int32, confirmedOn time.Time) (bool, error) {
	args := m.Called(ctx, id, confirmedOn)
	return args.Bool(0), args.Error(1)
}
func (m *MockPaymentRepo) MarkFailed(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockPaymentRepo) ListStale(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentIntent), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int32) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBorrowApproved(ctx context.Context, email, title string, dueDate time.Time) error {
	args := m.Called(ctx, email, title, dueDate)
	return args.Error(0)
}
func (m *MockEmailService) SendBorrowRejected(ctx context.Context, email, title, reason string) error {
	args := m.Called(ctx, email, title, reason)
	return args.Error(0)
}
func (m *MockEmailService) SendFineAssessed(ctx context.Context, email, title string, amountCents int32, checkoutURL string) error {
	args := m.Called(ctx, email, title, amountCents, checkoutURL)
	return args.Error(0)
}
func (m *MockEmailService) SendFineSettled(ctx context.Context, email, title string, amountCents int32) error {
	args := m.Called(ctx, email, title, amountCents)
	return args.Error(0)
}
func (m *MockEmailService) SendOverdueReminder(ctx context.Context, email, title string, dueDate time.Time, accruedCents int32) error {
	args := m.Called(ctx, email, title, dueDate, accruedCents)
	return args.Error(0)
}
func (m *MockEmailService) SendSettlementEscalation(ctx context.Context, adminEmail, subject, message string) error {
	args := m.Called(ctx, adminEmail, subject, message)
	return args.Error(0)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string {
	args := m.Called()
	return args.String(0)
}
func (m *MockGateway) CreateSession(ctx context.Context, req gateway.CreateSessionRequest) (*gateway.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Session), args.Error(1)
}

// MockSettlementService
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Initiate(ctx context.Context, borrowID, amountCents int32) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, borrowID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}
func (m *MockSettlementService) Verify(ctx context.Context, gatewayRef string, reportedAmountCents int32, reportedStatus string) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, gatewayRef, reportedAmountCents, reportedStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}
func (m *MockSettlementService) FlagStale(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentIntent), args.Error(1)
}
