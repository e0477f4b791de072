// File: internal/usecase/purchase_uc_test.go
package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/usecase"
)

type purchaseDeps struct {
	payments *MockPaymentRepo
	subs     *MockSubscriptionRepo
	plans    *model.PlanTable
	gateway  *MockPaymentGateway
	txm      *MockTxManager
}

func newPurchaseDeps() *purchaseDeps {
	return &purchaseDeps{
		payments: NewMockPaymentRepo(),
		subs:     NewMockSubscriptionRepo(),
		plans:    model.NewPlanTable(model.DefaultPlans()),
		gateway:  &MockPaymentGateway{},
		txm:      NewMockTxManager(),
	}
}

func (d *purchaseDeps) build() usecase.PurchaseUseCase {
	reconcile := usecase.NewReconcileUseCase(
		d.payments, d.subs, d.plans, d.gateway, d.txm, NewMockLocker(),
		&MockNotifier{}, &MockEnforcer{}, time.Second, newTestLogger(),
	)
	return usecase.NewPurchaseUseCase(
		d.payments, d.subs, d.plans, d.gateway, d.txm, reconcile,
		"payer@example.test", newTestLogger(),
	)
}

func TestPurchase_StartCreatesSubscriptionLazily(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()
	uc := deps.build()

	sub, menu, err := uc.StartOrRenew(ctx, 100, 555)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sub.Status != model.SubscriptionStatusNone {
		t.Errorf("status = %q, want none for a fresh user", sub.Status)
	}
	if sub.ChatID != 555 {
		t.Errorf("chat = %d, want 555", sub.ChatID)
	}
	if len(menu) == 0 {
		t.Fatal("expected the initial menu")
	}
	for _, p := range menu {
		if p.Renewal {
			t.Errorf("initial menu must not carry renewal plan %q", p.Code)
		}
	}
	if deps.subs.Get(100) == nil {
		t.Error("expected the record to be persisted")
	}

	// Second call returns the same record, no duplicate.
	again, _, err := uc.StartOrRenew(ctx, 100, 555)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !again.CreatedAt.Equal(sub.CreatedAt) {
		t.Error("expected the existing record, not a fresh one")
	}
}

func TestPurchase_RenewalWindowShowsDiscountedMenu(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()

	until := time.Now().UTC().Add(12 * time.Hour)
	exp := time.Now().UTC().Add(10 * time.Hour)
	s := model.NewSubscription(100, 100)
	s.Status = model.SubscriptionStatusRenewalWindow
	s.PlanCode = "monthly"
	s.ExpiresAt = &exp
	s.RenewalOfferUntil = &until
	deps.subs.Save(ctx, nil, s)

	_, menu, err := deps.build().StartOrRenew(ctx, 100, 100)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(menu) == 0 {
		t.Fatal("expected the renewal menu")
	}
	for _, p := range menu {
		if !p.Renewal {
			t.Errorf("renewal menu must only carry renewal plans, got %q", p.Code)
		}
	}
}

func TestPurchase_RequestPaymentStoresPendingCharge(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()
	var gotReq adapter.CreateChargeRequest
	deps.gateway.CreatePaymentFunc = func(ctx context.Context, req adapter.CreateChargeRequest) (*adapter.Charge, error) {
		gotReq = req
		return &adapter.Charge{ID: "mp-1", Status: "pending", AmountCents: req.AmountCents, ExternalRef: req.ExternalRef, QRPayload: "00020126qr", TicketURL: "https://example.test/t"}, nil
	}

	p, plan, err := deps.build().RequestPayment(ctx, 100, 555, "monthly")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if plan.Code != "monthly" {
		t.Errorf("plan = %q, want monthly", plan.Code)
	}
	if gotReq.AmountCents != 2990 {
		t.Errorf("charged %d centavos, want 2990", gotReq.AmountCents)
	}
	if !strings.HasPrefix(gotReq.ExternalRef, "pixsub:100:monthly:") {
		t.Errorf("external ref = %q, want pixsub:100:monthly:<nonce>", gotReq.ExternalRef)
	}

	stored := deps.payments.Get("mp-1")
	if stored == nil || stored.Status != model.PaymentStatusPending {
		t.Fatalf("expected a pending payment record, got %+v", stored)
	}
	if stored.QRPayload != "00020126qr" {
		t.Errorf("QR payload not kept: %q", stored.QRPayload)
	}
	if p.ID != "mp-1" {
		t.Errorf("payment id = %q, want the provider id", p.ID)
	}

	sub := deps.subs.Get(100)
	if sub == nil || sub.Status != model.SubscriptionStatusPending {
		t.Errorf("subscription should be pending after a first purchase, got %+v", sub)
	}
}

func TestPurchase_ActiveUserBuyingKeepsStatus(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()
	exp := time.Now().UTC().Add(10 * 24 * time.Hour)
	s := model.NewSubscription(100, 100)
	s.Status = model.SubscriptionStatusActive
	s.PlanCode = "monthly"
	s.ExpiresAt = &exp
	deps.subs.Save(ctx, nil, s)

	if _, _, err := deps.build().RequestPayment(ctx, 100, 100, "monthly"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := deps.subs.Get(100); got.Status != model.SubscriptionStatusActive {
		t.Errorf("an active entitlement must not drop to pending, got %q", got.Status)
	}
}

func TestPurchase_RenewalPlanGatedOnOfferWindow(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()
	uc := deps.build()

	// No offer window open: discounted codes are invisible.
	_, _, err := uc.RequestPayment(ctx, 100, 100, "monthly-renewal")
	if !errors.Is(err, domain.ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan outside the window, got: %v", err)
	}

	until := time.Now().UTC().Add(12 * time.Hour)
	exp := time.Now().UTC().Add(10 * time.Hour)
	s := model.NewSubscription(100, 100)
	s.Status = model.SubscriptionStatusRenewalWindow
	s.PlanCode = "monthly"
	s.ExpiresAt = &exp
	s.RenewalOfferUntil = &until
	deps.subs.Save(ctx, nil, s)

	if _, _, err := uc.RequestPayment(ctx, 100, 100, "monthly-renewal"); err != nil {
		t.Fatalf("expected the discounted plan inside the window, got: %v", err)
	}
}

func TestPurchase_UnknownPlanRejected(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()

	_, _, err := deps.build().RequestPayment(ctx, 100, 100, "lifetime")
	if !errors.Is(err, domain.ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got: %v", err)
	}
	if deps.gateway.GetCalls != 0 {
		t.Error("no provider call for an unknown plan")
	}
}

func TestPurchase_GatewayFailureLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()
	deps.gateway.CreatePaymentFunc = func(ctx context.Context, req adapter.CreateChargeRequest) (*adapter.Charge, error) {
		return nil, domain.ErrGatewayUnavailable
	}

	_, _, err := deps.build().RequestPayment(ctx, 100, 100, "monthly")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected the gateway error, got: %v", err)
	}
	if len(deps.txm.Calls) != 0 {
		t.Error("no transaction when the charge was never created")
	}
	if deps.subs.Get(100) != nil {
		t.Error("no subscription record for a failed charge")
	}
}

func TestPurchase_CheckPaymentRunsReconciliation(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()
	deps.payments.Save(ctx, nil, pendingPayment("pay-1", 100, "monthly"))
	deps.gateway.GetPaymentFunc = func(ctx context.Context, id string) (*adapter.Charge, error) {
		return approvedCharge(id), nil
	}

	out, err := deps.build().CheckPayment(ctx, "pay-1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if out.Kind != usecase.OutcomeActivated {
		t.Fatalf("expected activation via the manual poll, got %q", out.Kind)
	}
	if deps.subs.Get(100) == nil || deps.subs.Get(100).Status != model.SubscriptionStatusActive {
		t.Error("manual poll must drive the same transition as the webhook")
	}
}

func TestPurchase_CheckLatestPicksNewestCharge(t *testing.T) {
	ctx := context.Background()
	deps := newPurchaseDeps()

	old := pendingPayment("pay-old", 100, "weekly")
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	deps.payments.Save(ctx, nil, old)
	deps.payments.Save(ctx, nil, pendingPayment("pay-new", 100, "monthly"))

	deps.gateway.GetPaymentFunc = func(ctx context.Context, id string) (*adapter.Charge, error) {
		if id != "pay-new" {
			t.Errorf("polled %q, want the newest charge", id)
		}
		return approvedCharge(id), nil
	}

	out, p, err := deps.build().CheckLatestPayment(ctx, 100)
	if err != nil {
		t.Fatalf("check latest: %v", err)
	}
	if out.Kind != usecase.OutcomeActivated {
		t.Fatalf("outcome = %q, want activated", out.Kind)
	}
	if p == nil || p.ID != "pay-new" {
		t.Fatalf("expected the newest charge back, got %+v", p)
	}
	if p.Status != model.PaymentStatusApproved {
		t.Errorf("returned charge status = %q, want the post-reconciliation state", p.Status)
	}
}

func TestPurchase_CheckLatestWithoutChargeIsNotFound(t *testing.T) {
	deps := newPurchaseDeps()

	_, _, err := deps.build().CheckLatestPayment(context.Background(), 100)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
