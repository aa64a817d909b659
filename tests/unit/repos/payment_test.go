package repos

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/repository/postgres"
)

var paymentCols = []string{
	"id", "borrow_id", "amount_cents", "status", "external_id",
	"gateway_reference", "provider", "created_on", "confirmed_on",
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()

	intent := &domain.PaymentIntent{
		BorrowID:    9,
		AmountCents: 150,
		Status:      domain.PaymentStatusInitiated,
		ExternalID:  "ext-1",
		Provider:    "checkout",
		CreatedOn:   time.Now(),
	}

	mock.ExpectQuery("INSERT INTO payment_intents").
		WithArgs(intent.BorrowID, intent.AmountCents, intent.Status, intent.ExternalID, intent.Provider, intent.CreatedOn).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	err = repo.Create(ctx, intent)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), intent.ID)
}

func TestPaymentRepository_GetByGatewayReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		rows := sqlmock.NewRows(paymentCols).
			AddRow(3, 9, 150, "VERIFYING", "ext-1", "gw-ref-1", "checkout", time.Now(), nil)

		mock.ExpectQuery("SELECT (.+) FROM payment_intents WHERE gateway_reference = \\$1").
			WithArgs("gw-ref-1").
			WillReturnRows(rows)

		intent, err := repo.GetByGatewayReference(ctx, "gw-ref-1")
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusVerifying, intent.Status)
		assert.Equal(t, int32(150), intent.AmountCents)
	})

	t.Run("Unknown Reference", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM payment_intents WHERE gateway_reference = \\$1").
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(paymentCols))

		intent, err := repo.GetByGatewayReference(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, intent)
	})
}

func TestPaymentRepository_ConfirmIfVerifying(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("First Callback Wins", func(t *testing.T) {
		mock.ExpectExec("UPDATE payment_intents SET status = 'CONFIRMED'").
			WithArgs(int32(3), now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		won, err := repo.ConfirmIfVerifying(ctx, 3, now)
		assert.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("Replay Loses Quietly", func(t *testing.T) {
		mock.ExpectExec("UPDATE payment_intents SET status = 'CONFIRMED'").
			WithArgs(int32(3), now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		won, err := repo.ConfirmIfVerifying(ctx, 3, now)
		assert.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("Blocked By Confirmed-Once Index", func(t *testing.T) {
		mock.ExpectExec("UPDATE payment_intents SET status = 'CONFIRMED'").
			WithArgs(int32(3), now).
			WillReturnError(&pq.Error{Code: "23505"})

		won, err := repo.ConfirmIfVerifying(ctx, 3, now)
		assert.ErrorIs(t, err, domain.ErrConflictingSettlement)
		assert.False(t, won)
	})
}

func TestPaymentRepository_GetOpenByBorrowID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Intent In Flight", func(t *testing.T) {
		rows := sqlmock.NewRows(paymentCols).
			AddRow(3, 9, 150, "VERIFYING", "ext-1", "gw-ref-1", "checkout", time.Now(), nil)

		mock.ExpectQuery("SELECT (.+) FROM payment_intents").
			WithArgs(int32(9)).
			WillReturnRows(rows)

		intent, err := repo.GetOpenByBorrowID(ctx, 9)
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusVerifying, intent.Status)
	})

	t.Run("None In Flight", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM payment_intents").
			WithArgs(int32(9)).
			WillReturnRows(sqlmock.NewRows(paymentCols))

		intent, err := repo.GetOpenByBorrowID(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, intent)
	})
}

func TestPaymentRepository_SetVerifying(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE payment_intents SET status = 'VERIFYING'").
		WithArgs(int32(3), "gw-ref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetVerifying(ctx, 3, "gw-ref-1"))
}

func TestPaymentRepository_ListStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	rows := sqlmock.NewRows(paymentCols).
		AddRow(3, 9, 150, "VERIFYING", "ext-1", "gw-ref-1", "checkout", cutoff.Add(-time.Hour), nil).
		AddRow(4, 11, 50, "INITIATED", "ext-2", "", "checkout", cutoff.Add(-2*time.Hour), nil)

	mock.ExpectQuery("SELECT (.+) FROM payment_intents").
		WithArgs(cutoff).
		WillReturnRows(rows)

	stale, err := repo.ListStale(ctx, cutoff)
	assert.NoError(t, err)
	assert.Len(t, stale, 2)
	assert.Equal(t, domain.PaymentStatusVerifying, stale[0].Status)
	assert.Equal(t, domain.PaymentStatusInitiated, stale[1].Status)
}
