package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedEvent(t *testing.T) {
	sessionID := "cs_42"
	order := &model.Order{ID: "order-42", ProviderSessionID: &sessionID}

	payload, err := simulatedEvent(order, time.Unix(1700000000, 0))
	require.NoError(t, err)

	event, err := client.DecodeEvent(payload)
	require.NoError(t, err)

	completed, ok := event.(*client.CheckoutCompletedEvent)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, "evt_test_webhook_order-42", completed.ID)
	assert.Equal(t, "cs_42", completed.SessionID)
	assert.Equal(t, model.SessionPaymentPaid, completed.PaymentStatus)
	assert.Equal(t, "pi_test_order-42", completed.PaymentIntentID)
}

func TestSimulatedEvent_NoSession(t *testing.T) {
	_, err := simulatedEvent(&model.Order{ID: "order-1"}, time.Now())
	assert.ErrorContains(t, err, "no checkout session")
}

func TestDeliverWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	signature := client.SignPayload(payload, "whsec_test", time.Now())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := client.VerifySignature(body, r.Header.Get(client.SignatureHeader), "whsec_test", time.Minute, time.Now()); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"status":"reconciled"}` + "\n"))
	}))
	defer srv.Close()

	status, body, err := deliverWebhook(context.Background(), srv.Client(), srv.URL, payload, signature)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"status":"reconciled"}`, body)

	status, _, err = deliverWebhook(context.Background(), srv.Client(), srv.URL, payload, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("36h", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, d)

	for _, s := range []string{"-1h", "0", "0s", "5s", "10s", "soon"} {
		_, err = parseDuration(s, 10*time.Second)
		assert.Error(t, err, s)
	}
}

func TestSweepTTL(t *testing.T) {
	cfg := &config.Config{
		Payment: config.Payment{Timeout: 10 * time.Second},
		Sweep:   config.Sweep{PendingTTL: 24 * time.Hour},
	}

	ttl, err := sweepTTL("", cfg)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)

	ttl, err = sweepTTL("48h", cfg)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, ttl)

	_, err = sweepTTL("0s", cfg)
	assert.Error(t, err)

	cfg.Sweep.PendingTTL = 0
	_, err = sweepTTL("", cfg)
	assert.ErrorContains(t, err, "SWEEP_PENDING_TTL")
}
