package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // charge created on provider side; awaiting confirmation
	PaymentStatusApproved  PaymentStatus = "approved"  // confirmed by provider; terminal and immutable
	PaymentStatusRejected  PaymentStatus = "rejected"  // provider declined; terminal
	PaymentStatusCancelled PaymentStatus = "cancelled" // expired or cancelled at provider; terminal
	PaymentStatusUnknown   PaymentStatus = "unknown"   // provider returned something we don't map
)

// IsTerminal reports whether the status can no longer change.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled:
		return true
	}
	return false
}

// NormalizePaymentStatus maps a raw provider status string onto our enum.
// Provider statuses we don't track (in_process, in_mediation, ...) stay pending
// so the reconciler keeps retrying them.
func NormalizePaymentStatus(raw string) PaymentStatus {
	switch raw {
	case "approved":
		return PaymentStatusApproved
	case "rejected":
		return PaymentStatusRejected
	case "cancelled", "expired", "refunded", "charged_back":
		return PaymentStatusCancelled
	case "pending", "in_process", "authorized", "in_mediation":
		return PaymentStatusPending
	default:
		return PaymentStatusUnknown
	}
}

// Payment records a PIX charge we issued at the provider.
// The primary key is the provider-assigned payment id.
type Payment struct {
	ID           string // provider payment id
	UserID       int64  // Telegram user id
	PlanCode     string
	AmountCents  int64 // BRL centavos, integer to avoid float errors
	Status       PaymentStatus
	ExternalRef  string // correlation string echoed back by the provider
	ChatID       int64  // where to deliver the approval notice
	QRPayload    string // PIX copy-paste code, kept for re-display
	TicketURL    string // provider-hosted QR page
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ApprovedAt   *time.Time // set when the provider reports approval
}
