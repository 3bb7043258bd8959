package outbox

import (
	"context"
	"log/slog"
	"storefront-checkout/internal/model"
)

// LogPublisher writes events to the log. It stands in for a broker in local
// setups where KAFKA_BROKERS is empty.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event *model.FulfillmentEvent) error {
	p.log.InfoContext(ctx, "fulfillment event",
		slog.String("event_id", event.EventID),
		slog.String("type", event.Type),
		slog.String("order_id", event.OrderID),
		slog.String("payload", event.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
