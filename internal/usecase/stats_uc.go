// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"

	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/repository"
	"telegram-pix-subscription/internal/infra/metrics"
)

var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase backs the admin stats endpoint and the status gauges.
type StatsUseCase interface {
	Totals(ctx context.Context) (map[model.SubscriptionStatus]int, error)
	Revenue(ctx context.Context) (week, month, year int64, err error)
}

type statsUC struct {
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
}

func NewStatsUseCase(subs repository.SubscriptionRepository, payments repository.PaymentRepository) *statsUC {
	return &statsUC{subs: subs, payments: payments}
}

func (u *statsUC) Totals(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	counts, err := u.subs.CountByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	metrics.SetSubscriptionsTotal(counts)
	return counts, nil
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	week, err := u.payments.SumApprovedByPeriod(ctx, nil, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.payments.SumApprovedByPeriod(ctx, nil, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := u.payments.SumApprovedByPeriod(ctx, nil, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return week, month, year, nil
}
