package postgres

import (
	"context"
	"database/sql"
	"errors"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/logger"
	"library-lending-backend/internal/repository"
)

type inventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

// Reserve is a compare-and-swap decrement: the WHERE clause only matches
// while a copy remains, so concurrent reservations on the last copy
// yield exactly one affected row.
func (r *inventoryRepository) Reserve(ctx context.Context, bookID int32) error {
	query := `UPDATE book_inventory SET available_copies = available_copies - 1
	          WHERE book_id = $1 AND available_copies > 0`
	logger.DatabaseCall("UPDATE", "book_inventory.reserve", "bookID", bookID)

	result, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "bookID", bookID)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil, "bookID", bookID)
	if rows == 0 {
		return domain.ErrNoCopiesAvailable
	}
	return nil
}

// Release is the inverse, bounded so the counter can never exceed
// total_copies even if a compensation is replayed.
func (r *inventoryRepository) Release(ctx context.Context, bookID int32) error {
	query := `UPDATE book_inventory SET available_copies = available_copies + 1
	          WHERE book_id = $1 AND available_copies < total_copies`
	result, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.Warn("Release matched no rows, counter already at total", "book_id", bookID)
	}
	return nil
}

func (r *inventoryRepository) GetByBookID(ctx context.Context, bookID int32) (*domain.BookInventory, error) {
	inv := &domain.BookInventory{}
	query := `SELECT book_id, title, total_copies, available_copies FROM book_inventory WHERE book_id = $1`
	err := r.db.QueryRowContext(ctx, query, bookID).Scan(&inv.BookID, &inv.Title, &inv.TotalCopies, &inv.AvailableCopies)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *inventoryRepository) Upsert(ctx context.Context, inv *domain.BookInventory) error {
	// On a total_copies change, keep copies currently on loan accounted
	// for: available = new_total - (old_total - old_available).
	query := `INSERT INTO book_inventory (book_id, title, total_copies, available_copies)
	          VALUES ($1, $2, $3, $3)
	          ON CONFLICT (book_id) DO UPDATE SET
	              title = EXCLUDED.title,
	              available_copies = GREATEST(0, EXCLUDED.total_copies - (book_inventory.total_copies - book_inventory.available_copies)),
	              total_copies = EXCLUDED.total_copies`
	_, err := r.db.ExecContext(ctx, query, inv.BookID, inv.Title, inv.TotalCopies)
	return err
}
