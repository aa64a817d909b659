package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"library-lending-backend/internal/domain"
	"library-lending-backend/internal/logger"
)

// mobileMoneyGateway adapts a regional mobile-money collection API. The
// provider pushes a payment prompt to the payer's phone and reports the
// outcome through the same verification callback as the checkout
// provider.
type mobileMoneyGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMobileMoneyGateway(baseURL, apiKey string, timeout time.Duration) Gateway {
	return &mobileMoneyGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *mobileMoneyGateway) Name() string { return "mobile-money" }

func (g *mobileMoneyGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	body := map[string]any{
		"reference": req.ExternalID,
		"amount":    req.AmountCents,
		"msisdn":    req.PayerPhone,
		"narrative": req.Description,
	}
	b, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/collections", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.ExternalServiceCall("mobile-money", "CreateSession", "reference", req.ExternalID)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		logger.ExternalServiceResult("mobile-money", "CreateSession", err)
		return nil, domain.Retryable(fmt.Errorf("mobile money collection request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, domain.Retryable(fmt.Errorf("mobile money gateway unavailable: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mobile money collection rejected: %s", resp.Status)
	}

	var out struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.TransactionID == "" {
		return nil, errors.New("mobile money: empty transaction id")
	}
	logger.ExternalServiceResult("mobile-money", "CreateSession", nil, "reference", out.TransactionID)

	return &Session{Reference: out.TransactionID}, nil
}
