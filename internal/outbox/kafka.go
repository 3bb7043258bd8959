package outbox

import (
	"context"
	"storefront-checkout/internal/model"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish keys messages by order id so events for one order stay on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event *model.FulfillmentEvent) error {
	return p.writer.WriteMessages(ctx, newMessage(event))
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(event *model.FulfillmentEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.OrderID),
		Value: []byte(event.Payload),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: time.Now().UTC(),
	}
}
