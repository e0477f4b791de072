// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/infra/metrics"
	"telegram-pix-subscription/internal/usecase"
)

// Pool drains the webhook handoff queue: the HTTP handler enqueues a payment
// id and returns immediately, workers call Reconcile with a bounded timeout.
// This keeps webhook acknowledgment latency independent of provider fetches.
type Pool struct {
	wg         sync.WaitGroup
	jobs       chan string
	quit       chan struct{}
	n          int
	reconcile  usecase.ReconcileUseCase
	jobTimeout time.Duration
	log        *zerolog.Logger
}

func NewPool(workers, queueSize int, reconcile usecase.ReconcileUseCase, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = workers * 64
	}
	poolLog := logger.With().Str("component", "ReconcilePool").Logger()
	return &Pool{
		jobs:       make(chan string, queueSize),
		quit:       make(chan struct{}),
		n:          workers,
		reconcile:  reconcile,
		jobTimeout: 45 * time.Second,
		log:        &poolLog,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case paymentID := <-p.jobs:
					metrics.SetWebhookQueueDepth(len(p.jobs))
					p.run(ctx, paymentID)
				}
			}
		}()
	}
}

func (p *Pool) run(ctx context.Context, paymentID string) {
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()
	out, err := p.reconcile.Reconcile(jobCtx, paymentID)
	if err != nil {
		// Next webhook redelivery, manual poll, or the stale-pending
		// reconciler retries this charge.
		p.log.Error().Err(err).Str("payment_id", paymentID).Msg("reconcile failed")
		return
	}
	p.log.Debug().Str("payment_id", paymentID).Str("outcome", string(out.Kind)).Msg("reconcile done")
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// Enqueue hands a payment id to the workers without blocking the caller.
// When saturated the notification is dropped; redelivery covers the loss.
func (p *Pool) Enqueue(paymentID string) error {
	if paymentID == "" {
		return errors.New("empty payment id")
	}
	select {
	case p.jobs <- paymentID:
		metrics.SetWebhookQueueDepth(len(p.jobs))
		return nil
	default:
		metrics.IncWebhookDrop()
		return errors.New("reconcile queue full")
	}
}
