package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

func newProductRepo(db *gorm.DB) repository.ProductRepository {
	return repository.NewProductRepository(db)
}

// newLedger builds a ledger whose metrics go to a throwaway registry.
func newLedger(log *slog.Logger, db *gorm.DB) service.LedgerService {
	return service.NewLedgerService(log, db, metrics.New(prometheus.NewRegistry()),
		repository.NewProductRepository(db),
		repository.NewOrderRepository(db),
		repository.NewFulfillmentEventRepository(db),
	)
}

// parseDuration rejects anything not strictly longer than floor.
func parseDuration(s string, floor time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= floor {
		return 0, fmt.Errorf("duration %q must be longer than %s", s, floor)
	}
	return d, nil
}

// sweepTTL picks the sweep age from the flag or config. It must outlast
// the payment timeout.
func sweepTTL(olderThan string, cfg *config.Config) (time.Duration, error) {
	if olderThan != "" {
		return parseDuration(olderThan, cfg.Payment.Timeout)
	}
	if cfg.Sweep.PendingTTL <= cfg.Payment.Timeout {
		return 0, fmt.Errorf("SWEEP_PENDING_TTL %s must be longer than PAYMENT_TIMEOUT %s", cfg.Sweep.PendingTTL, cfg.Payment.Timeout)
	}
	return cfg.Sweep.PendingTTL, nil
}

func discardLogger() *slog.Logger {
	return logger.New(io.Discard, "error", logger.FormatText)
}
