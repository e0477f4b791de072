// File: internal/usecase/purchase_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

// PurchaseUseCase is the surface the messaging front-end drives: reading the
// entitlement state to pick a menu, issuing a PIX charge, and manually
// polling a charge.
type PurchaseUseCase interface {
	// StartOrRenew returns the user's subscription (lazily created) and the
	// plan menu to show: the discounted table while the renewal offer is
	// open, the initial table otherwise.
	StartOrRenew(ctx context.Context, userID, chatID int64) (*model.Subscription, []*model.Plan, error)
	// RequestPayment creates a pending payment for the chosen plan.
	RequestPayment(ctx context.Context, userID, chatID int64, planCode string) (*model.Payment, *model.Plan, error)
	// CheckPayment runs the manual poll path through the same reconciliation
	// engine as the webhook.
	CheckPayment(ctx context.Context, paymentID string) (Outcome, error)
	// CheckLatestPayment polls the user's most recent charge.
	CheckLatestPayment(ctx context.Context, userID int64) (Outcome, *model.Payment, error)
}

type purchaseUC struct {
	payments   repository.PaymentRepository
	subs       repository.SubscriptionRepository
	plans      *model.PlanTable
	gateway    adapter.PaymentGateway
	txm        repository.TransactionManager
	reconcile  ReconcileUseCase
	payerEmail string
	log        *zerolog.Logger
}

func NewPurchaseUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans *model.PlanTable,
	gateway adapter.PaymentGateway,
	txm repository.TransactionManager,
	reconcile ReconcileUseCase,
	payerEmail string,
	logger *zerolog.Logger,
) *purchaseUC {
	ucLog := logger.With().Str("component", "PurchaseUC").Logger()
	return &purchaseUC{
		payments:   payments,
		subs:       subs,
		plans:      plans,
		gateway:    gateway,
		txm:        txm,
		reconcile:  reconcile,
		payerEmail: payerEmail,
		log:        &ucLog,
	}
}

func (u *purchaseUC) StartOrRenew(ctx context.Context, userID, chatID int64) (*model.Subscription, []*model.Plan, error) {
	sub, err := u.subs.FindByUser(ctx, nil, userID)
	if errors.Is(err, domain.ErrNotFound) {
		sub = model.NewSubscription(userID, chatID)
		if err := u.subs.Save(ctx, nil, sub); err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}

	renewal := sub.InRenewalOffer(time.Now().UTC())
	return sub, u.plans.Menu(renewal), nil
}

func (u *purchaseUC) RequestPayment(ctx context.Context, userID, chatID int64, planCode string) (*model.Payment, *model.Plan, error) {
	plan, err := u.plans.Find(planCode)
	if err != nil {
		return nil, nil, err
	}

	// Discounted plans are only purchasable while the offer window is open.
	sub, err := u.subs.FindByUser(ctx, nil, userID)
	if errors.Is(err, domain.ErrNotFound) {
		sub = model.NewSubscription(userID, chatID)
	} else if err != nil {
		return nil, nil, err
	}
	if plan.Renewal && !sub.InRenewalOffer(time.Now().UTC()) {
		return nil, nil, domain.ErrUnknownPlan
	}

	ref := model.NewExternalRef(userID, plan.Code)
	charge, err := u.gateway.CreatePayment(ctx, adapter.CreateChargeRequest{
		AmountCents: plan.AmountCents,
		Description: plan.Name + " - Prime VIP",
		PayerEmail:  u.payerEmail,
		ExternalRef: ref.String(),
	})
	if err != nil {
		// No partial state: the user can retry immediately.
		return nil, nil, err
	}

	now := time.Now().UTC()
	p := &model.Payment{
		ID:          charge.ID,
		UserID:      userID,
		PlanCode:    plan.Code,
		AmountCents: plan.AmountCents,
		Status:      model.PaymentStatusPending,
		ExternalRef: ref.String(),
		ChatID:      chatID,
		QRPayload:   charge.QRPayload,
		TicketURL:   charge.TicketURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = u.txm.WithUserTx(ctx, pgx.TxOptions{}, userID, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		// none/expired -> pending; an active entitlement buying a renewal
		// keeps its current status until the charge is approved.
		switch sub.Status {
		case model.SubscriptionStatusNone, model.SubscriptionStatusExpired:
			sub.Status = model.SubscriptionStatusPending
		}
		sub.ChatID = chatID
		sub.UpdatedAt = now
		return u.subs.Save(ctx, tx, sub)
	})
	if err != nil {
		return nil, nil, err
	}

	u.log.Info().Str("payment_id", p.ID).Int64("user_id", userID).Str("plan", plan.Code).Msg("pix charge created")
	return p, plan, nil
}

func (u *purchaseUC) CheckPayment(ctx context.Context, paymentID string) (Outcome, error) {
	return u.reconcile.Reconcile(ctx, paymentID)
}

func (u *purchaseUC) CheckLatestPayment(ctx context.Context, userID int64) (Outcome, *model.Payment, error) {
	p, err := u.payments.FindLatestByUser(ctx, nil, userID)
	if err != nil {
		return Outcome{Kind: OutcomeUnmapped}, nil, err
	}
	out, err := u.reconcile.Reconcile(ctx, p.ID)
	if err != nil {
		return out, p, err
	}
	// Re-read so the caller sees the post-reconciliation status.
	fresh, ferr := u.payments.FindByID(ctx, nil, p.ID)
	if ferr == nil {
		p = fresh
	}
	return out, p, nil
}
