package model

import "encoding/json"

// Checkout session payment_status values reported by the provider.
const (
	SessionPaymentPaid              = "paid"
	SessionPaymentUnpaid            = "unpaid"
	SessionPaymentNoPaymentRequired = "no_payment_required"
)

// Event types delivered to the webhook endpoint that the reconciler acts on.
const (
	EventCheckoutSessionCompleted             = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

type CheckoutSessionObject struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	PaymentStatus     string            `json:"payment_status"`
	PaymentIntent     string            `json:"payment_intent"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type ProviderEventData struct {
	Object json.RawMessage `json:"object"`
}

type ProviderEvent struct {
	ID       string            `json:"id"`
	Object   string            `json:"object"`
	Type     string            `json:"type"`
	Created  int64             `json:"created"`
	Livemode bool              `json:"livemode"`
	Data     ProviderEventData `json:"data"`
}
