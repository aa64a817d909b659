package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/repository"
)

const paymentColumns = `id, borrow_id, amount_cents, status, external_id, COALESCE(gateway_reference, ''), provider, created_on, confirmed_on`

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanIntent(row interface{ Scan(...interface{}) error }) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{}
	err := row.Scan(&intent.ID, &intent.BorrowID, &intent.AmountCents, &intent.Status,
		&intent.ExternalID, &intent.GatewayReference, &intent.Provider, &intent.CreatedOn, &intent.ConfirmedOn)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (r *paymentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	query := `INSERT INTO payment_intents (borrow_id, amount_cents, status, external_id, provider, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.db.QueryRowContext(ctx, query, intent.BorrowID, intent.AmountCents, intent.Status,
		intent.ExternalID, intent.Provider, intent.CreatedOn).Scan(&intent.ID)
}

func (r *paymentRepository) GetByID(ctx context.Context, id int32) (*domain.PaymentIntent, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_intents WHERE id = $1`
	intent, err := scanIntent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return intent, err
}

func (r *paymentRepository) GetByGatewayReference(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_intents WHERE gateway_reference = $1`
	intent, err := scanIntent(r.db.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return intent, err
}

func (r *paymentRepository) GetConfirmedByBorrowID(ctx context.Context, borrowID int32) (*domain.PaymentIntent, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_intents WHERE borrow_id = $1 AND status = 'CONFIRMED'`
	intent, err := scanIntent(r.db.QueryRowContext(ctx, query, borrowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return intent, err
}

func (r *paymentRepository) GetOpenByBorrowID(ctx context.Context, borrowID int32) (*domain.PaymentIntent, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_intents
	          WHERE borrow_id = $1 AND status IN ('INITIATED', 'VERIFYING')
	          ORDER BY created_on DESC LIMIT 1`
	intent, err := scanIntent(r.db.QueryRowContext(ctx, query, borrowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return intent, err
}

func (r *paymentRepository) SetVerifying(ctx context.Context, id int32, gatewayRef string) error {
	query := `UPDATE payment_intents SET status = 'VERIFYING', gateway_reference = $2
	          WHERE id = $1 AND status = 'INITIATED'`
	result, err := r.db.ExecContext(ctx, query, id, gatewayRef)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConfirmIfVerifying arbitrates duplicated callbacks: only the first one
// sees an affected row, replays get (false, nil).
func (r *paymentRepository) ConfirmIfVerifying(ctx context.Context, id int32, confirmedOn time.Time) (bool, error) {
	query := `UPDATE payment_intents SET status = 'CONFIRMED', confirmed_on = $2
	          WHERE id = $1 AND status = 'VERIFYING'`
	result, err := r.db.ExecContext(ctx, query, id, confirmedOn)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// The confirmed-once index: another intent already confirmed
			// for this borrow record.
			return false, domain.ErrConflictingSettlement
		}
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id int32) error {
	// Never demote a confirmed intent.
	query := `UPDATE payment_intents SET status = 'FAILED' WHERE id = $1 AND status <> 'CONFIRMED'`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *paymentRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.PaymentIntent, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_intents
	          WHERE status IN ('INITIATED', 'VERIFYING') AND created_on < $1 ORDER BY created_on`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.PaymentIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	return intents, rows.Err()
}
