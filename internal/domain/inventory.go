package domain

type BookInventory struct {
	BookID          int32  `json:"book_id"`
	Title           string `json:"title"`
	TotalCopies     int32  `json:"total_copies"`
	AvailableCopies int32  `json:"available_copies"`
}
