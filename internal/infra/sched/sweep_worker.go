package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/usecase"
)

// SweepWorker periodically drives the expiration/renewal sweep.
type SweepWorker struct {
	interval time.Duration
	sweepUC  usecase.SweepUseCase
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, sweepUC usecase.SweepUseCase, logger *zerolog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	swLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{interval: interval, sweepUC: sweepUC, log: &swLog}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			expired, opened, err := w.sweepUC.SweepOnce(runCtx)
			cancel()
			if err != nil {
				w.log.Error().Err(err).Msg("sweep error")
				continue
			}
			if expired > 0 || opened > 0 {
				w.log.Info().Int("expired", expired).Int("windows_opened", opened).Msg("sweep tick done")
			}
		}
	}
}
