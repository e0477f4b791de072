// File: internal/usecase/sweep_uc.go
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

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepUseCase ages entitlements: it opens the renewal-discount window once
// per entitlement lifetime and retires records whose expiry elapsed.
type SweepUseCase interface {
	// SweepOnce walks every aging subscription once. It is idempotent per
	// tick: re-running without time passing produces no further transitions
	// or notifications. Returns (expired, windowsOpened).
	SweepOnce(ctx context.Context) (int, int, error)
}

type sweepUC struct {
	subs     repository.SubscriptionRepository
	plans    *model.PlanTable
	txm      repository.TransactionManager
	notifier adapter.Notifier
	enforcer adapter.AccessEnforcer
	window   time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewSweepUseCase(
	subs repository.SubscriptionRepository,
	plans *model.PlanTable,
	txm repository.TransactionManager,
	notifier adapter.Notifier,
	enforcer adapter.AccessEnforcer,
	renewalWindow time.Duration,
	batchLimit int,
	logger *zerolog.Logger,
) *sweepUC {
	if renewalWindow <= 0 {
		renewalWindow = 24 * time.Hour
	}
	if batchLimit <= 0 {
		batchLimit = 500
	}
	ucLog := logger.With().Str("component", "SweepUC").Logger()
	return &sweepUC{
		subs:     subs,
		plans:    plans,
		txm:      txm,
		notifier: notifier,
		enforcer: enforcer,
		window:   renewalWindow,
		batch:    batchLimit,
		log:      &ucLog,
	}
}

func (u *sweepUC) SweepOnce(ctx context.Context) (int, int, error) {
	now := time.Now().UTC()
	// One listing covers both transitions: everything already past expiry
	// plus everything inside the trailing window.
	aging, err := u.subs.ListExpiring(ctx, nil, now.Add(u.window), u.batch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	var expired, opened int
	for _, candidate := range aging {
		// Per-user processing is failure-isolated: one bad record never
		// aborts the sweep for the rest.
		e, o, err := u.sweepUser(ctx, candidate.UserID, now)
		if err != nil {
			u.log.Error().Err(err).Int64("user_id", candidate.UserID).Msg("sweep user failed")
			continue
		}
		expired += e
		opened += o
	}

	if expired > 0 {
		metrics.IncSubscriptionsExpired(expired)
	}
	if opened > 0 {
		metrics.IncRenewalWindowsOpened(opened)
	}
	return expired, opened, nil
}

func (u *sweepUC) sweepUser(ctx context.Context, userID int64, now time.Time) (expired, opened int, err error) {
	var (
		sub      *model.Subscription
		didClose bool
		didOpen  bool
	)
	err = u.txm.WithUserTx(ctx, pgx.TxOptions{}, userID, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.subs.FindByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		// Re-check under the user lock; a concurrent renewal approval may
		// have replaced the expiry since the listing.
		if cur.ExpiresAt == nil ||
			(cur.Status != model.SubscriptionStatusActive && cur.Status != model.SubscriptionStatusRenewalWindow) {
			return nil
		}

		switch {
		case !cur.ExpiresAt.After(now):
			cur.Expire(now)
			didClose = true
		case cur.RenewalOfferUntil == nil && cur.ExpiresAt.Sub(now) <= u.window:
			// Opened exactly once per entitlement lifetime; repeated ticks
			// fall through the nil check above.
			cur.OpenRenewalWindow(now, u.window)
			didOpen = true
		default:
			return nil
		}
		sub = cur
		return u.subs.Save(ctx, tx, cur)
	})
	if err != nil || sub == nil {
		return 0, 0, err
	}

	// The transition is durably committed before side effects: a notify or
	// revoke failure never rolls it back and never fabricates one.
	if didClose {
		expired = 1
		if err := u.enforcer.RevokeAccess(ctx, sub.UserID); err != nil {
			u.log.Error().Err(err).Int64("user_id", sub.UserID).Msg("revoke access failed")
		}
		if err := u.notifier.SendMessage(ctx, sub.ChatID, expiredMessage()); err != nil {
			u.log.Error().Err(err).Int64("chat_id", sub.ChatID).Msg("expiry notice failed")
		}
		u.log.Info().Int64("user_id", sub.UserID).Msg("subscription expired")
	}
	if didOpen {
		opened = 1
		menu := PlanMenuMessage(u.plans.Menu(true), true)
		if err := u.notifier.SendMessage(ctx, sub.ChatID, menu); err != nil {
			u.log.Error().Err(err).Int64("chat_id", sub.ChatID).Msg("renewal offer notice failed")
		}
		u.log.Info().Int64("user_id", sub.UserID).Time("offer_until", *sub.RenewalOfferUntil).Msg("renewal window opened")
	}
	return expired, opened, nil
}
