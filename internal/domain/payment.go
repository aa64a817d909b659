package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusVerifying PaymentStatus = "VERIFYING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed
}

// PaymentIntent is one attempt to settle a borrow record's fine through
// an external gateway. ExternalID is the reference we hand to the
// gateway; GatewayReference is what the gateway hands back and keys the
// verification callback.
type PaymentIntent struct {
	ID               int32         `json:"id"`
	BorrowID         int32         `json:"borrow_id"`
	AmountCents      int32         `json:"amount_cents"`
	Status           PaymentStatus `json:"status"`
	ExternalID       string        `json:"external_id"`
	GatewayReference string        `json:"gateway_reference,omitempty"`
	Provider         string        `json:"provider"`
	CreatedOn        time.Time     `json:"created_on"`
	ConfirmedOn      *time.Time    `json:"confirmed_on,omitempty"`
}
