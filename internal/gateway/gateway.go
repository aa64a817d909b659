// Package gateway contains the external payment provider adapters.
// Settlement only depends on an adapter returning a session reference
// and the provider later calling the verification callback; which
// provider serviced a given intent is irrelevant to it.
package gateway

import "context"

type CreateSessionRequest struct {
	// ExternalID is our payment intent reference, echoed back by the
	// provider in the verification callback.
	ExternalID  string
	AmountCents int32
	Description string
	PayerEmail  string
	PayerPhone  string
}

type Session struct {
	// Reference is the provider-side identifier that keys verification.
	Reference   string
	CheckoutURL string
}

type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
}
