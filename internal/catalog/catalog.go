// Package catalog is the client for the external catalog service, the
// sole owner of book metadata. The engine only consults it when seeding
// inventory counters, never on the borrow path.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/logger"
)

type Book struct {
	ID          int32  `json:"id"`
	Title       string `json:"title"`
	TotalCopies int32  `json:"total_copies"`
}

type Client interface {
	GetBook(ctx context.Context, bookID int32) (*Book, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) GetBook(ctx context.Context, bookID int32) (*Book, error) {
	url := fmt.Sprintf("%s/books/%d", c.baseURL, bookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	logger.ExternalServiceCall("catalog", "GetBook", "book_id", bookID)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.ExternalServiceResult("catalog", "GetBook", err)
		return nil, domain.Retryable(fmt.Errorf("catalog request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog lookup failed: %s", resp.Status)
	}

	var book Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, err
	}
	logger.ExternalServiceResult("catalog", "GetBook", nil, "title", book.Title)
	return &book, nil
}
