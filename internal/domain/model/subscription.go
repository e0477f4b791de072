package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusNone          SubscriptionStatus = "none"           // user known, never paid
	SubscriptionStatusPending       SubscriptionStatus = "pending"        // purchase requested, charge not confirmed
	SubscriptionStatusActive        SubscriptionStatus = "active"         // entitlement granted until ExpiresAt
	SubscriptionStatusRenewalWindow SubscriptionStatus = "renewal_window" // trailing discount window before expiry
	SubscriptionStatusExpired       SubscriptionStatus = "expired"        // entitlement retired; new purchase restarts
)

// Subscription is the single entitlement record per user. It is created lazily
// on first interaction and never deleted.
type Subscription struct {
	UserID            int64
	Status            SubscriptionStatus
	PlanCode          string     // empty unless active/renewal_window
	ExpiresAt         *time.Time // written once per activation, never recomputed at read time
	RenewalOfferUntil *time.Time // set when the renewal window opens; opened at most once per entitlement
	LastPaymentID     string
	ChatID            int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSubscription returns the lazily-created initial record for a user.
func NewSubscription(userID, chatID int64) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		UserID:    userID,
		Status:    SubscriptionStatusNone,
		ChatID:    chatID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Entitled reports whether the user currently holds access.
func (s *Subscription) Entitled(now time.Time) bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusRenewalWindow:
		return now.Before(*s.ExpiresAt)
	}
	return false
}

// Activate applies an approved payment. Duration is always measured from the
// approval instant: a renewal replaces remaining time, it does not stack it.
func (s *Subscription) Activate(plan *Plan, paymentID string, approvedAt time.Time) {
	expires := approvedAt.Add(plan.Duration())
	s.Status = SubscriptionStatusActive
	s.PlanCode = plan.Code
	s.ExpiresAt = &expires
	s.RenewalOfferUntil = nil
	s.LastPaymentID = paymentID
	s.UpdatedAt = approvedAt
}

// OpenRenewalWindow marks the trailing discount window. Callers must check
// RenewalOfferUntil first; the window is never re-opened or extended.
func (s *Subscription) OpenRenewalWindow(now time.Time, window time.Duration) {
	until := now.Add(window)
	s.Status = SubscriptionStatusRenewalWindow
	s.RenewalOfferUntil = &until
	s.UpdatedAt = now
}

// Expire retires the entitlement and clears all plan fields so no stale
// entitlement data survives.
func (s *Subscription) Expire(now time.Time) {
	s.Status = SubscriptionStatusExpired
	s.PlanCode = ""
	s.ExpiresAt = nil
	s.RenewalOfferUntil = nil
	s.UpdatedAt = now
}

// InRenewalOffer reports whether the discounted menu should still be shown.
func (s *Subscription) InRenewalOffer(now time.Time) bool {
	return s != nil && s.RenewalOfferUntil != nil && now.Before(*s.RenewalOfferUntil)
}
