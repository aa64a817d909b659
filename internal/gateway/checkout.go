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

// checkoutGateway is the generic hosted-checkout provider: one POST to
// open a session, the provider redirects the payer and calls back
// asynchronously.
type checkoutGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCheckoutGateway(baseURL, apiKey string, timeout time.Duration) Gateway {
	return &checkoutGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *checkoutGateway) Name() string { return "checkout" }

func (g *checkoutGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	body := map[string]any{
		"external_id": req.ExternalID,
		"amount":      req.AmountCents,
		"currency":    "minor_units",
		"description": req.Description,
		"payer_email": req.PayerEmail,
	}
	b, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/checkout/sessions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(g.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/json")

	logger.ExternalServiceCall("checkout", "CreateSession", "external_id", req.ExternalID)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		logger.ExternalServiceResult("checkout", "CreateSession", err)
		// Timeouts and connection failures are worth a fresh initiate.
		return nil, domain.Retryable(fmt.Errorf("checkout session request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, domain.Retryable(fmt.Errorf("checkout gateway unavailable: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("checkout session rejected: %s", resp.Status)
	}

	var out struct {
		ID          string `json:"id"`
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("checkout: empty session id")
	}
	logger.ExternalServiceResult("checkout", "CreateSession", nil, "reference", out.ID)

	return &Session{Reference: out.ID, CheckoutURL: out.CheckoutURL}, nil
}
