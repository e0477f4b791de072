// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment // by provider id

	SaveFunc         func(ctx context.Context, qx any, p *model.Payment) error
	FindByIDFunc     func(ctx context.Context, qx any, id string) (*model.Payment, error)
	UpdateStatusFunc func(ctx context.Context, qx any, id string, status model.PaymentStatus, approvedAt *time.Time) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, qx any, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, qx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, qx any, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, qx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByExternalRef(ctx context.Context, qx any, extRef string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.ExternalRef == extRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindLatestByUser(ctx context.Context, qx any, userID int64) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Payment
	for _, p := range r.data {
		if p.UserID != userID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, qx any, id string, status model.PaymentStatus, approvedAt *time.Time) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, qx, id, status, approvedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if approvedAt != nil && p.ApprovedAt == nil {
		at := *approvedAt
		p.ApprovedAt = &at
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) SumApprovedByPeriod(ctx context.Context, qx any, period string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.data {
		if p.Status == model.PaymentStatusApproved {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

// Get returns the stored record without the copy semantics of FindByID; only
// for test assertions.
func (r *MockPaymentRepo) Get(id string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[id]
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[int64]*model.Subscription

	SaveFunc       func(ctx context.Context, qx any, sub *model.Subscription) error
	FindByUserFunc func(ctx context.Context, qx any, userID int64) (*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[int64]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, qx any, sub *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, qx, sub)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.data[sub.UserID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByUser(ctx context.Context, qx any, userID int64) (*model.Subscription, error) {
	if r.FindByUserFunc != nil {
		return r.FindByUserFunc(ctx, qx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListExpiring(ctx context.Context, qx any, before time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.ExpiresAt == nil {
			continue
		}
		if s.Status != model.SubscriptionStatusActive && s.Status != model.SubscriptionStatusRenewalWindow {
			continue
		}
		if s.ExpiresAt.Before(before) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, qx any) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range r.data {
		out[s.Status]++
	}
	return out, nil
}

func (r *MockSubscriptionRepo) Get(userID int64) *model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[userID]
}

// ---- Mock TransactionManager ----

// MockTxManager runs fn immediately with a nil handle. Per-user serialization
// is the real implementation's concern; these tests only care that fn's writes
// happen before side effects.
type MockTxManager struct {
	mu    sync.Mutex
	Calls []int64 // userIDs in order

	WithUserTxFunc func(ctx context.Context, txOpt pgx.TxOptions, userID int64, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

func (m *MockTxManager) WithUserTx(ctx context.Context, txOpt pgx.TxOptions, userID int64, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, userID)
	m.mu.Unlock()
	if m.WithUserTxFunc != nil {
		return m.WithUserTxFunc(ctx, txOpt, userID, fn)
	}
	return fn(ctx, nil)
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu       sync.Mutex
	GetCalls int

	CreatePaymentFunc func(ctx context.Context, req adapter.CreateChargeRequest) (*adapter.Charge, error)
	GetPaymentFunc    func(ctx context.Context, paymentID string) (*adapter.Charge, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req adapter.CreateChargeRequest) (*adapter.Charge, error) {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, req)
	}
	return &adapter.Charge{
		ID:          uuid.NewString(),
		Status:      "pending",
		AmountCents: req.AmountCents,
		ExternalRef: req.ExternalRef,
		QRPayload:   "00020126pix-payload",
		TicketURL:   "https://example.test/qr",
	}, nil
}

func (m *MockPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*adapter.Charge, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, paymentID)
	}
	return nil, domain.ErrNotFound
}

// ---- Mock KeyLocker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	FailAll bool // every TryLock reports busy
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailAll {
		return "", domain.ErrLockNotAcquired
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return errors.New("token mismatch")
	}
	delete(l.held, key)
	return nil
}

// ---- Mock Notifier / AccessEnforcer ----

type sentMessage struct {
	ChatID int64
	Text   string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentMessage
	Docs []string // filenames

	SendMessageFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (n *MockNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	if n.SendMessageFunc != nil {
		return n.SendMessageFunc(ctx, chatID, text)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (n *MockNotifier) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Docs = append(n.Docs, filename)
	return nil
}

func (n *MockNotifier) SentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

type MockEnforcer struct {
	mu      sync.Mutex
	Grants  []int64
	Revokes []int64

	GrantAccessFunc func(ctx context.Context, userID, chatID int64) error
}

var _ adapter.AccessEnforcer = (*MockEnforcer)(nil)

func (e *MockEnforcer) GrantAccess(ctx context.Context, userID, chatID int64) error {
	if e.GrantAccessFunc != nil {
		return e.GrantAccessFunc(ctx, userID, chatID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Grants = append(e.Grants, userID)
	return nil
}

func (e *MockEnforcer) RevokeAccess(ctx context.Context, userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Revokes = append(e.Revokes, userID)
	return nil
}
