package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"storefront-checkout/internal/model"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

// Event is a decoded webhook delivery. The set of implementations is closed:
// *CheckoutCompletedEvent, *AsyncPaymentSucceededEvent and *UnrecognizedEvent.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

type CheckoutCompletedEvent struct {
	ID              string
	SessionID       string
	PaymentStatus   string
	PaymentIntentID string
}

type AsyncPaymentSucceededEvent struct {
	ID              string
	SessionID       string
	PaymentIntentID string
}

// UnrecognizedEvent is acknowledged and otherwise ignored.
type UnrecognizedEvent struct {
	ID   string
	Type string
}

func (e *CheckoutCompletedEvent) EventID() string   { return e.ID }
func (e *CheckoutCompletedEvent) EventType() string { return model.EventCheckoutSessionCompleted }
func (*CheckoutCompletedEvent) isEvent()            {}

func (e *AsyncPaymentSucceededEvent) EventID() string { return e.ID }
func (e *AsyncPaymentSucceededEvent) EventType() string {
	return model.EventCheckoutSessionAsyncPaymentSucceeded
}
func (*AsyncPaymentSucceededEvent) isEvent() {}

func (e *UnrecognizedEvent) EventID() string   { return e.ID }
func (e *UnrecognizedEvent) EventType() string { return e.Type }
func (*UnrecognizedEvent) isEvent()            {}

func DecodeEvent(payload []byte) (Event, error) {
	var envelope model.ProviderEvent
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	switch envelope.Type {
	case model.EventCheckoutSessionCompleted:
		session, err := decodeSession(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		return &CheckoutCompletedEvent{
			ID:              envelope.ID,
			SessionID:       session.ID,
			PaymentStatus:   session.PaymentStatus,
			PaymentIntentID: session.PaymentIntent,
		}, nil
	case model.EventCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		return &AsyncPaymentSucceededEvent{
			ID:              envelope.ID,
			SessionID:       session.ID,
			PaymentIntentID: session.PaymentIntent,
		}, nil
	default:
		return &UnrecognizedEvent{ID: envelope.ID, Type: envelope.Type}, nil
	}
}

func decodeSession(raw json.RawMessage) (*model.CheckoutSessionObject, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing data.object", ErrMalformedEvent)
	}
	var session model.CheckoutSessionObject
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("%w: data.object: %v", ErrMalformedEvent, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: missing data.object.id", ErrMalformedEvent)
	}
	return &session, nil
}
