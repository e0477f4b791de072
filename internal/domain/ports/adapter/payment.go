package adapter

import (
	"context"
	"time"
)

// CreateChargeRequest carries everything the provider needs to open a PIX
// charge. ExternalRef is echoed back by the provider and drives correlation
// recovery.
type CreateChargeRequest struct {
	AmountCents int64
	Description string
	PayerEmail  string
	ExternalRef string
}

// Charge is the provider's authoritative view of a payment.
type Charge struct {
	ID          string
	Status      string // raw provider status: pending|approved|rejected|cancelled|in_process|...
	AmountCents int64
	ExternalRef string
	QRPayload   string // PIX copy-paste code
	TicketURL   string // provider-hosted QR page
	ApprovedAt  *time.Time
}

// PaymentGateway is the hex port for the PIX provider.
type PaymentGateway interface {
	Name() string

	// CreatePayment opens a charge and returns the provider's view including
	// the QR payload to show the user.
	CreatePayment(ctx context.Context, req CreateChargeRequest) (*Charge, error)
	// GetPayment fetches the authoritative status of a charge by provider id.
	// Reconciliation always calls this instead of trusting notification bodies.
	GetPayment(ctx context.Context, paymentID string) (*Charge, error)
}
