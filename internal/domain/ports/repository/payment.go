package repository

import (
	"context"
	"time"

	"telegram-pix-subscription/internal/domain/model"
)

// PaymentRepository is the port for PIX charge records. Writes keyed on the
// provider payment id are atomic; the `qx` handle carries an optional
// transaction (see TransactionManager).
type PaymentRepository interface {
	Save(ctx context.Context, qx any, p *model.Payment) error
	FindByID(ctx context.Context, qx any, id string) (*model.Payment, error)
	FindByExternalRef(ctx context.Context, qx any, extRef string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, qx any, id string, status model.PaymentStatus, approvedAt *time.Time) error
	// FindLatestByUser returns the user's most recently created charge; the
	// manual poll command checks this one.
	FindLatestByUser(ctx context.Context, qx any, userID int64) (*model.Payment, error)
	ListPendingOlderThan(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.Payment, error)
	SumApprovedByPeriod(ctx context.Context, qx any, period string) (int64, error)
}
