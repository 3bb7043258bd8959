// Package outbox relays fulfillment events committed alongside paid orders to
// downstream consumers.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, event *model.FulfillmentEvent) error
	Close() error
}

// Dispatcher polls unsent fulfillment events and hands them to a Publisher.
// Delivery is at-least-once: an event is marked sent only after Publish
// returns, so consumers must dedupe on the event id.
type Dispatcher struct {
	log       *slog.Logger
	repo      repository.FulfillmentEventRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
}

func NewDispatcher(log *slog.Logger, repo repository.FulfillmentEventRepository, publisher Publisher, cfg config.Outbox) *Dispatcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	return &Dispatcher{
		log:       log.With(slog.String("component", "outbox")),
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run dispatches on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("outbox dispatcher started", slog.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			d.log.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil && ctx.Err() == nil {
				d.log.Warn("outbox dispatch incomplete", slog.Any("error", err))
			}
		}
	}
}

// DispatchPending publishes one batch in id order. It stops at the first
// failure so later events are not delivered ahead of it.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	events, err := d.repo.FetchPending(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending fulfillment events: %w", err)
	}

	sent := 0
	for _, event := range events {
		if err := d.publisher.Publish(ctx, event); err != nil {
			return sent, fmt.Errorf("publish %s: %w", event.EventID, err)
		}
		if err := d.repo.MarkSent(ctx, event.ID); err != nil {
			return sent, fmt.Errorf("mark %s sent: %w", event.EventID, err)
		}
		sent++
	}

	if sent > 0 {
		d.log.Info("fulfillment events published", slog.Int("count", sent))
	}
	return sent, nil
}
