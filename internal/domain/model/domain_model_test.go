//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"telegram-pix-subscription/internal/domain"
)

// --- ExternalRef Tests ---

func TestExternalRef(t *testing.T) {
	t.Run("should round-trip through String and Parse", func(t *testing.T) {
		ref := NewExternalRef(123456789, "monthly")
		if ref.Nonce == "" {
			t.Fatal("expected a non-empty nonce")
		}
		parsed, err := ParseExternalRef(ref.String())
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if parsed != ref {
			t.Errorf("round-trip mismatch: %+v != %+v", parsed, ref)
		}
	})

	t.Run("should generate distinct nonces", func(t *testing.T) {
		a := NewExternalRef(1, "weekly")
		b := NewExternalRef(1, "weekly")
		if a.Nonce == b.Nonce {
			t.Error("expected distinct nonces for consecutive references")
		}
	})

	t.Run("should reject foreign or malformed references", func(t *testing.T) {
		bad := []string{
			"",
			"monthly",
			"othershop:1:monthly:nonce",
			"pixsub:1:monthly",
			"pixsub:abc:monthly:nonce",
			"pixsub:0:monthly:nonce",
			"pixsub:-5:monthly:nonce",
			"pixsub:1::nonce",
			"pixsub:1:monthly:",
		}
		for _, s := range bad {
			if _, err := ParseExternalRef(s); !errors.Is(err, domain.ErrBadExternalRef) {
				t.Errorf("ParseExternalRef(%q): expected ErrBadExternalRef, got %v", s, err)
			}
		}
	})
}

// --- PaymentStatus Tests ---

func TestNormalizePaymentStatus(t *testing.T) {
	cases := map[string]PaymentStatus{
		"approved":     PaymentStatusApproved,
		"rejected":     PaymentStatusRejected,
		"cancelled":    PaymentStatusCancelled,
		"expired":      PaymentStatusCancelled,
		"refunded":     PaymentStatusCancelled,
		"charged_back": PaymentStatusCancelled,
		"pending":      PaymentStatusPending,
		"in_process":   PaymentStatusPending,
		"in_mediation": PaymentStatusPending,
		"something":    PaymentStatusUnknown,
		"":             PaymentStatusUnknown,
	}
	for raw, want := range cases {
		if got := NormalizePaymentStatus(raw); got != want {
			t.Errorf("NormalizePaymentStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	if PaymentStatusPending.IsTerminal() || PaymentStatusUnknown.IsTerminal() {
		t.Error("pending and unknown must not be terminal")
	}
	for _, s := range []PaymentStatus{PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
}

// --- Subscription Tests ---

func TestSubscriptionActivate(t *testing.T) {
	plan := &Plan{Code: "monthly", Name: "Plano Mensal", DurationDays: 30, AmountCents: 2990}
	approvedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should measure duration from the approval instant", func(t *testing.T) {
		sub := NewSubscription(1, 1)
		sub.Activate(plan, "pay-1", approvedAt)

		if sub.Status != SubscriptionStatusActive {
			t.Errorf("status = %q, want active", sub.Status)
		}
		want := approvedAt.Add(30 * 24 * time.Hour)
		if !sub.ExpiresAt.Equal(want) {
			t.Errorf("expiry = %v, want %v", sub.ExpiresAt, want)
		}
		if sub.LastPaymentID != "pay-1" || sub.PlanCode != "monthly" {
			t.Errorf("payment link missing: %+v", sub)
		}
	})

	t.Run("should replace remaining time instead of stacking", func(t *testing.T) {
		sub := NewSubscription(1, 1)
		sub.Activate(plan, "pay-1", approvedAt)
		later := approvedAt.Add(10 * 24 * time.Hour)
		sub.Activate(plan, "pay-2", later)

		want := later.Add(30 * 24 * time.Hour)
		if !sub.ExpiresAt.Equal(want) {
			t.Errorf("expiry = %v, want %v (no stacking)", sub.ExpiresAt, want)
		}
	})

	t.Run("should clear a pending renewal offer", func(t *testing.T) {
		sub := NewSubscription(1, 1)
		sub.Activate(plan, "pay-1", approvedAt)
		sub.OpenRenewalWindow(approvedAt.Add(29*24*time.Hour), 24*time.Hour)
		sub.Activate(plan, "pay-2", approvedAt.Add(29*24*time.Hour+time.Hour))

		if sub.RenewalOfferUntil != nil {
			t.Error("expected the offer window to be cleared")
		}
		if sub.Status != SubscriptionStatusActive {
			t.Errorf("status = %q, want active", sub.Status)
		}
	})
}

func TestSubscriptionExpire(t *testing.T) {
	plan := &Plan{Code: "weekly", Name: "Plano Semanal", DurationDays: 7, AmountCents: 1990}
	sub := NewSubscription(1, 1)
	sub.Activate(plan, "pay-1", time.Now().UTC().Add(-8*24*time.Hour))
	sub.Expire(time.Now().UTC())

	if sub.Status != SubscriptionStatusExpired {
		t.Errorf("status = %q, want expired", sub.Status)
	}
	if sub.PlanCode != "" || sub.ExpiresAt != nil || sub.RenewalOfferUntil != nil {
		t.Errorf("plan fields must be cleared: %+v", sub)
	}
	if sub.Entitled(time.Now().UTC()) {
		t.Error("an expired subscription must not be entitled")
	}
}

func TestSubscriptionEntitled(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name   string
		status SubscriptionStatus
		expiry *time.Time
		want   bool
	}{
		{"active before expiry", SubscriptionStatusActive, &future, true},
		{"renewal window before expiry", SubscriptionStatusRenewalWindow, &future, true},
		{"active past expiry", SubscriptionStatusActive, &past, false},
		{"pending", SubscriptionStatusPending, &future, false},
		{"no expiry", SubscriptionStatusActive, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := NewSubscription(1, 1)
			sub.Status = tc.status
			sub.ExpiresAt = tc.expiry
			if got := sub.Entitled(now); got != tc.want {
				t.Errorf("Entitled() = %v, want %v", got, tc.want)
			}
		})
	}
}

// --- Plan Tests ---

func TestNewPlan(t *testing.T) {
	t.Run("should reject invalid arguments", func(t *testing.T) {
		if _, err := NewPlan("", "Nome", 7, 1000, false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Error("empty code must be rejected")
		}
		if _, err := NewPlan("weekly", "Nome", 0, 1000, false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Error("zero duration must be rejected")
		}
		if _, err := NewPlan("weekly", "Nome", 7, 0, false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Error("zero price must be rejected")
		}
	})
}

func TestPlanTableMenu(t *testing.T) {
	table := NewPlanTable(DefaultPlans())

	initial := table.Menu(false)
	renewal := table.Menu(true)
	if len(initial) == 0 || len(renewal) == 0 {
		t.Fatalf("both menus must be populated: %d initial, %d renewal", len(initial), len(renewal))
	}
	for _, p := range initial {
		if p.Renewal {
			t.Errorf("initial menu carries renewal plan %q", p.Code)
		}
	}
	for _, p := range renewal {
		if !p.Renewal {
			t.Errorf("renewal menu carries initial plan %q", p.Code)
		}
	}

	if _, err := table.Find("monthly"); err != nil {
		t.Errorf("Find(monthly): %v", err)
	}
	if _, err := table.Find("lifetime"); !errors.Is(err, domain.ErrUnknownPlan) {
		t.Errorf("Find(lifetime): expected ErrUnknownPlan, got %v", err)
	}
}
