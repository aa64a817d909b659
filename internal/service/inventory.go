package service

import (
	"context"

	"library-lending-backend/internal/catalog"
	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/logger"
	"library-lending-backend/internal/repository"
)

type inventoryService struct {
	invRepo repository.InventoryRepository
	catalog catalog.Client
}

func NewInventoryService(invRepo repository.InventoryRepository, catalogClient catalog.Client) InventoryService {
	return &inventoryService{invRepo: invRepo, catalog: catalogClient}
}

// Sync pulls the title's metadata and copy count from the catalog, the
// sole owner of "does this title exist", and upserts the local counters.
func (s *inventoryService) Sync(ctx context.Context, caller domain.Caller, bookID int32) (*domain.BookInventory, error) {
	if !caller.Role.IsOverseer() {
		return nil, domain.ErrUnauthorized
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	inv := &domain.BookInventory{
		BookID:      book.ID,
		Title:       book.Title,
		TotalCopies: book.TotalCopies,
	}
	if err := s.invRepo.Upsert(ctx, inv); err != nil {
		return nil, err
	}

	logger.Info("Inventory synced from catalog", "book_id", bookID, "total_copies", book.TotalCopies)
	return s.invRepo.GetByBookID(ctx, bookID)
}

func (s *inventoryService) Get(ctx context.Context, bookID int32) (*domain.BookInventory, error) {
	return s.invRepo.GetByBookID(ctx, bookID)
}
