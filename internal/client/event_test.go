package client_test

import (
	"testing"

	"storefront-checkout/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_CheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_123", "object": "checkout.session", "payment_status": "paid", "payment_intent": "pi_1"}}
	}`)

	event, err := client.DecodeEvent(payload)
	require.NoError(t, err)

	completed, ok := event.(*client.CheckoutCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "evt_1", completed.EventID())
	assert.Equal(t, "cs_123", completed.SessionID)
	assert.Equal(t, "paid", completed.PaymentStatus)
	assert.Equal(t, "pi_1", completed.PaymentIntentID)
}

func TestDecodeEvent_AsyncPaymentSucceeded(t *testing.T) {
	payload := []byte(`{"id":"evt_2","type":"checkout.session.async_payment_succeeded","data":{"object":{"id":"cs_9","payment_intent":"pi_9"}}}`)

	event, err := client.DecodeEvent(payload)
	require.NoError(t, err)

	async, ok := event.(*client.AsyncPaymentSucceededEvent)
	require.True(t, ok)
	assert.Equal(t, "cs_9", async.SessionID)
	assert.Equal(t, "pi_9", async.PaymentIntentID)
}

func TestDecodeEvent_Unrecognized(t *testing.T) {
	event, err := client.DecodeEvent([]byte(`{"id":"evt_3","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`))
	require.NoError(t, err)

	unrecognized, ok := event.(*client.UnrecognizedEvent)
	require.True(t, ok)
	assert.Equal(t, "charge.refunded", unrecognized.EventType())
}

func TestDecodeEvent_Malformed(t *testing.T) {
	payloads := map[string]string{
		"not json":        `{"id":`,
		"missing type":    `{"id":"evt_1"}`,
		"missing object":  `{"id":"evt_1","type":"checkout.session.completed"}`,
		"missing session": `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"payment_status":"paid"}}}`,
		"object not json": `{"id":"evt_1","type":"checkout.session.completed","data":{"object":"cs_1"}}`,
	}
	for name, payload := range payloads {
		_, err := client.DecodeEvent([]byte(payload))
		assert.ErrorIs(t, err, client.ErrMalformedEvent, name)
	}
}
