// File: internal/usecase/reconcile_uc.go
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
	"telegram-pix-subscription/internal/infra/metrics"
)

// KeyLocker is the per-payment mutual exclusion the engine takes before any
// read-modify-write. Satisfied by the redis locker in production.
type KeyLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase fetches the authoritative status of a payment and applies
// the corresponding local state transition. Every path that confirms payments
// (webhook workers, the stale-pending reconciler, manual polls) funnels
// through Reconcile; idempotency derives from the stored payment status.
type ReconcileUseCase interface {
	Reconcile(ctx context.Context, paymentID string) (Outcome, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	plans    *model.PlanTable
	gateway  adapter.PaymentGateway
	txm      repository.TransactionManager
	locker   KeyLocker
	notifier adapter.Notifier
	enforcer adapter.AccessEnforcer
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans *model.PlanTable,
	gateway adapter.PaymentGateway,
	txm repository.TransactionManager,
	locker KeyLocker,
	notifier adapter.Notifier,
	enforcer adapter.AccessEnforcer,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *reconcileUC {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	ucLog := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		payments: payments,
		subs:     subs,
		plans:    plans,
		gateway:  gateway,
		txm:      txm,
		locker:   locker,
		notifier: notifier,
		enforcer: enforcer,
		lockTTL:  lockTTL,
		log:      &ucLog,
	}
}

func (u *reconcileUC) Reconcile(ctx context.Context, paymentID string) (Outcome, error) {
	out, err := u.reconcile(ctx, paymentID)
	metrics.IncReconcileOutcome(outcomeLabel(out, err))
	return out, err
}

func (u *reconcileUC) reconcile(ctx context.Context, paymentID string) (Outcome, error) {
	token, err := u.locker.TryLock(ctx, "reconcile:payment:"+paymentID, u.lockTTL)
	if err != nil {
		u.log.Debug().Str("payment_id", paymentID).Msg("payment lock busy")
		return Outcome{Kind: OutcomeLocked}, nil
	}
	defer func() { _ = u.locker.Unlock(ctx, "reconcile:payment:"+paymentID, token) }()

	// Authoritative status comes from the provider, never from a
	// notification body.
	charge, err := u.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("payment_id", paymentID).Msg("provider does not know this payment")
			return Outcome{Kind: OutcomeUnmapped}, nil
		}
		// Gateway unavailability aborts this attempt without writes; it is
		// never treated as a rejection.
		return Outcome{}, err
	}
	status := model.NormalizePaymentStatus(charge.Status)

	p, err := u.payments.FindByID(ctx, nil, paymentID)
	if errors.Is(err, domain.ErrNotFound) {
		p, err = u.recoverPayment(charge)
		if err != nil {
			u.log.Warn().
				Str("payment_id", paymentID).
				Str("external_ref", charge.ExternalRef).
				Msg("cannot correlate payment to a user; manual intervention needed")
			return Outcome{Kind: OutcomeUnmapped}, nil
		}
		u.log.Info().Str("payment_id", paymentID).Int64("user_id", p.UserID).Msg("payment record recovered from external reference")
	} else if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	var approvedPlan *model.Plan
	err = u.txm.WithUserTx(ctx, pgx.TxOptions{}, p.UserID, func(ctx context.Context, tx repository.Tx) error {
		// Re-read under the user lock; FindByID takes FOR UPDATE in a tx.
		cur, err := u.payments.FindByID(ctx, tx, p.ID)
		if errors.Is(err, domain.ErrNotFound) {
			// Lazily persist the recovered record so retries see it.
			if err := u.payments.Save(ctx, tx, p); err != nil {
				return err
			}
			cur = p
		} else if err != nil {
			return err
		}

		switch status {
		case model.PaymentStatusApproved:
			if cur.Status == model.PaymentStatusApproved {
				out = Outcome{Kind: OutcomeAlreadyApplied}
				return nil
			}
			plan, err := u.plans.Find(cur.PlanCode)
			if err != nil {
				return err
			}
			// Duration is measured from the approval instant, never from any
			// previously stored expiry: a renewal replaces remaining time.
			approvedAt := time.Now().UTC()
			if err := u.payments.UpdateStatus(ctx, tx, cur.ID, model.PaymentStatusApproved, &approvedAt); err != nil {
				return err
			}

			sub, err := u.subs.FindByUser(ctx, tx, cur.UserID)
			if errors.Is(err, domain.ErrNotFound) {
				sub = model.NewSubscription(cur.UserID, cur.ChatID)
			} else if err != nil {
				return err
			}
			sub.Activate(plan, cur.ID, approvedAt)
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}

			approvedPlan = plan
			cur.ChatID = sub.ChatID
			*p = *cur
			out = Outcome{Kind: OutcomeActivated, ExpiresAt: sub.ExpiresAt}
			return nil

		case model.PaymentStatusRejected, model.PaymentStatusCancelled:
			if cur.Status.IsTerminal() {
				out = Outcome{Kind: OutcomeAlreadyApplied}
				return nil
			}
			// A failed renewal must not clobber a still-valid entitlement:
			// only the payment record changes.
			if err := u.payments.UpdateStatus(ctx, tx, cur.ID, status, nil); err != nil {
				return err
			}
			out = Outcome{Kind: OutcomeDenied}
			return nil

		default:
			// pending / in_process / unknown: no state change, retry later.
			out = Outcome{Kind: OutcomePending}
			return nil
		}
	})
	if err != nil {
		return Outcome{}, err
	}

	// Side effects run only after the transition committed, and only on the
	// first application. Failures are logged; they never undo state.
	switch out.Kind {
	case OutcomeActivated:
		metrics.IncPayment(string(model.PaymentStatusApproved))
		metrics.AddPaymentRevenue(p.AmountCents)
		if err := u.enforcer.GrantAccess(ctx, p.UserID, p.ChatID); err != nil {
			u.log.Error().Err(err).Int64("user_id", p.UserID).Msg("grant access failed")
		}
		if err := u.notifier.SendMessage(ctx, p.ChatID, approvalMessage(approvedPlan, *out.ExpiresAt)); err != nil {
			u.log.Error().Err(err).Int64("chat_id", p.ChatID).Msg("approval notice failed")
		}
		u.log.Info().Str("payment_id", p.ID).Int64("user_id", p.UserID).Time("expires_at", *out.ExpiresAt).Msg("subscription activated")
	case OutcomeDenied:
		metrics.IncPayment(string(status))
		u.log.Info().Str("payment_id", p.ID).Str("status", string(status)).Msg("payment denied; subscription untouched")
	}
	return out, nil
}

// recoverPayment rebuilds a missing local record from the external reference
// echoed by the provider.
func (u *reconcileUC) recoverPayment(charge *adapter.Charge) (*model.Payment, error) {
	ref, err := model.ParseExternalRef(charge.ExternalRef)
	if err != nil {
		return nil, err
	}
	if _, err := u.plans.Find(ref.PlanCode); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &model.Payment{
		ID:          charge.ID,
		UserID:      ref.UserID,
		PlanCode:    ref.PlanCode,
		AmountCents: charge.AmountCents,
		Status:      model.PaymentStatusPending,
		ExternalRef: charge.ExternalRef,
		// Private Telegram chats share the user id.
		ChatID:    ref.UserID,
		QRPayload: charge.QRPayload,
		TicketURL: charge.TicketURL,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func outcomeLabel(out Outcome, err error) string {
	if err != nil {
		return "error"
	}
	return string(out.Kind)
}
