package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/ports/repository"
	"telegram-pix-subscription/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and drives
// them through the same Reconcile path as the webhook. This covers lost
// notifications and crashes mid-apply: re-running reconcile is how partial
// writes converge.
type PaymentReconciler struct {
	uc         usecase.ReconcileUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to recheck
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.ReconcileUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	prLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: &prLog}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending failed")
		return
	}
	for _, p := range pending {
		out, err := w.uc.Reconcile(ctx, p.ID)
		if err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("stale recheck failed")
			continue
		}
		if out.Kind != usecase.OutcomePending && out.Kind != usecase.OutcomeLocked {
			w.log.Info().Str("payment_id", p.ID).Str("outcome", string(out.Kind)).Msg("stale payment reconciled")
		}
	}
}
