package service

import (
	"context"
	"log/slog"
	"storefront-checkout/internal/config"
	"time"
)

// Sweeper periodically removes pending orders that never got a checkout
// session. Nothing can ever pay them.
type Sweeper struct {
	log      *slog.Logger
	ledger   LedgerService
	ttl      time.Duration
	interval time.Duration
}

func NewSweeper(log *slog.Logger, ledger LedgerService, cfg config.Sweep) *Sweeper {
	return &Sweeper{
		log:      log,
		ledger:   ledger,
		ttl:      cfg.PendingTTL,
		interval: cfg.Interval,
	}
}

// Run sweeps once per interval until ctx is cancelled. It returns at once
// when the interval is not positive.
func (s *Sweeper) Run(ctx context.Context) {
	const op = "service.Sweeper.Run"
	logger := s.log.With(slog.String("op", op))

	if s.interval <= 0 {
		logger.Info("pending order sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ledger.SweepUncorrelated(ctx, s.ttl); err != nil && ctx.Err() == nil {
				logger.Warn("sweep failed", slog.Any("error", err))
			}
		}
	}
}
