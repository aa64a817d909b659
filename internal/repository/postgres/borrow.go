package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/repository"

	"github.com/lib/pq"
)

const borrowColumns = `id, book_id, user_id, status, requested_on, approved_on, approved_by, due_date, returned_on, COALESCE(rejection_reason, ''), fine_amount_cents, settled_on, waived_by`

type borrowRepository struct {
	db *sql.DB
}

func NewBorrowRepository(db *sql.DB) repository.BorrowRepository {
	return &borrowRepository{db: db}
}

func scanBorrow(row interface{ Scan(...interface{}) error }) (*domain.BorrowRecord, error) {
	rec := &domain.BorrowRecord{}
	err := row.Scan(&rec.ID, &rec.BookID, &rec.UserID, &rec.Status, &rec.RequestedOn,
		&rec.ApprovedOn, &rec.ApprovedBy, &rec.DueDate, &rec.ReturnedOn,
		&rec.RejectionReason, &rec.FineAmountCents, &rec.SettledOn, &rec.WaivedBy)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *borrowRepository) Create(ctx context.Context, rec *domain.BorrowRecord) error {
	query := `INSERT INTO borrow_records (book_id, user_id, status, requested_on, approved_on, approved_by, due_date, fine_amount_cents)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, rec.BookID, rec.UserID, rec.Status, rec.RequestedOn,
		rec.ApprovedOn, rec.ApprovedBy, rec.DueDate, rec.FineAmountCents).Scan(&rec.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// The partial unique index on live claims caught a racing insert
		// that slipped past the service-level check.
		return domain.ErrDuplicateActiveClaim
	}
	return err
}

func (r *borrowRepository) GetByID(ctx context.Context, id int32) (*domain.BorrowRecord, error) {
	query := `SELECT ` + borrowColumns + ` FROM borrow_records WHERE id = $1`
	rec, err := scanBorrow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (r *borrowRepository) GetActiveClaim(ctx context.Context, userID, bookID int32) (*domain.BorrowRecord, error) {
	query := `SELECT ` + borrowColumns + ` FROM borrow_records
	          WHERE user_id = $1 AND book_id = $2 AND status IN ('PENDING', 'BORROWED')`
	rec, err := scanBorrow(r.db.QueryRowContext(ctx, query, userID, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (r *borrowRepository) GetActiveLoan(ctx context.Context, userID, bookID int32) (*domain.BorrowRecord, error) {
	query := `SELECT ` + borrowColumns + ` FROM borrow_records
	          WHERE user_id = $1 AND book_id = $2 AND status = 'BORROWED'`
	rec, err := scanBorrow(r.db.QueryRowContext(ctx, query, userID, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoActiveLoan
	}
	return rec, err
}

// ApproveIfPending only matches while the record is still PENDING, so of
// two racing approvers exactly one sees an affected row.
func (r *borrowRepository) ApproveIfPending(ctx context.Context, id, approverID int32, approvedOn, dueDate time.Time) error {
	query := `UPDATE borrow_records
	          SET status = 'BORROWED', approved_on = $2, approved_by = $3, due_date = $4
	          WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, approvedOn, approverID, dueDate)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotPending
	}
	return nil
}

func (r *borrowRepository) RejectIfPending(ctx context.Context, id, approverID int32, reason string) error {
	query := `UPDATE borrow_records
	          SET status = 'REJECTED', approved_by = $2, rejection_reason = $3
	          WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, approverID, reason)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotPending
	}
	return nil
}

func (r *borrowRepository) ReturnIfBorrowed(ctx context.Context, id int32, returnedOn time.Time, fineCents int32) error {
	query := `UPDATE borrow_records
	          SET status = 'RETURNED', returned_on = $2, fine_amount_cents = $3
	          WHERE id = $1 AND status = 'BORROWED'`
	result, err := r.db.ExecContext(ctx, query, id, returnedOn, fineCents)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNoActiveLoan
	}
	return nil
}

func (r *borrowRepository) MarkSettled(ctx context.Context, id int32, settledOn time.Time, waivedBy *int32) error {
	query := `UPDATE borrow_records SET settled_on = $2, waived_by = $3
	          WHERE id = $1 AND status = 'RETURNED' AND settled_on IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, settledOn, waivedBy)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already settled or not returned; replayed confirmations land here.
		return domain.ErrNotFound
	}
	return nil
}

func (r *borrowRepository) Delete(ctx context.Context, id int32) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM borrow_records WHERE id = $1`, id)
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

func (r *borrowRepository) ListByUser(ctx context.Context, userID int32, statuses []domain.BorrowStatus, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + borrowColumns + ` FROM borrow_records WHERE user_id = $1`

	args := []interface{}{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		statusStrs := make([]string, len(statuses))
		for i, s := range statuses {
			statusStrs[i] = string(s)
		}
		args = append(args, pq.Array(statusStrs))
	}

	var count int32
	countQuery := `SELECT count(*) FROM (` + query + `) AS sub`
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY requested_on DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	return r.queryRecords(ctx, query, args, count)
}

func (r *borrowRepository) ListAll(ctx context.Context, status string, page, pageSize int32) ([]domain.BorrowRecord, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + borrowColumns + ` FROM borrow_records`

	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	var count int32
	countQuery := `SELECT count(*) FROM (` + query + `) AS sub`
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY requested_on DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	return r.queryRecords(ctx, query, args, count)
}

func (r *borrowRepository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.BorrowRecord, error) {
	query := `SELECT ` + borrowColumns + ` FROM borrow_records
	          WHERE status = 'BORROWED' AND due_date < $1`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.BorrowRecord
	for rows.Next() {
		rec, err := scanBorrow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (r *borrowRepository) queryRecords(ctx context.Context, query string, args []interface{}, count int32) ([]domain.BorrowRecord, int32, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []domain.BorrowRecord
	for rows.Next() {
		rec, err := scanBorrow(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, *rec)
	}
	return recs, count, rows.Err()
}
