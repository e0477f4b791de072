package repository

import (
	"context"
	"time"

	"telegram-pix-subscription/internal/domain/model"
)

// SubscriptionRepository is the port for per-user entitlement records.
type SubscriptionRepository interface {
	Save(ctx context.Context, qx any, sub *model.Subscription) error
	FindByUser(ctx context.Context, qx any, userID int64) (*model.Subscription, error)
	// ListExpiring returns records in active/renewal_window whose expiry falls
	// before the cutoff. The sweeper walks this set on every tick.
	ListExpiring(ctx context.Context, qx any, before time.Time, limit int) ([]*model.Subscription, error)
	CountByStatus(ctx context.Context, qx any) (map[model.SubscriptionStatus]int, error)
}
