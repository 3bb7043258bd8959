package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/service"

	"github.com/spf13/cobra"
)

func simulateWebhookCmd() *cobra.Command {
	var (
		target   string
		unsigned bool
	)

	cmd := &cobra.Command{
		Use:   "simulate-webhook <order-id>",
		Short: "Deliver a checkout.session.completed event for an order to a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}

			order, err := newLedger(discardLogger(), db).GetOrder(cmd.Context(), service.ByOrderID(args[0]))
			if err != nil {
				return fmt.Errorf("order %s: %w", args[0], err)
			}

			payload, err := simulatedEvent(order, time.Now())
			if err != nil {
				return err
			}

			signature := ""
			if !unsigned {
				if cfg.Payment.WebhookSecret == "" {
					return errors.New("PAYMENT_WEBHOOK_SECRET is not set; use --unsigned against a server that allows it")
				}
				signature = client.SignPayload(payload, cfg.Payment.WebhookSecret, time.Now())
			}

			if target == "" {
				target = strings.TrimRight(cfg.BaseURL, "/") + "/api/checkout/webhook"
			}

			status, body, err := deliverWebhook(cmd.Context(), &http.Client{Timeout: 10 * time.Second}, target, payload, signature)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("webhook rejected: %d %s", status, body)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook delivered for order %s: %s\n", order.ID, body)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "url", "", "webhook endpoint (default BASE_URL/api/checkout/webhook)")
	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "send without a signature header")
	return cmd
}

// simulatedEvent builds the completed-session event the provider would send
// once the order's session is paid.
func simulatedEvent(order *model.Order, now time.Time) ([]byte, error) {
	if order.SessionID() == "" {
		return nil, fmt.Errorf("order %s has no checkout session", order.ID)
	}

	session, err := json.Marshal(model.CheckoutSessionObject{
		ID:                order.SessionID(),
		Object:            "checkout.session",
		PaymentStatus:     model.SessionPaymentPaid,
		PaymentIntent:     "pi_test_" + order.ID,
		ClientReferenceID: order.ID,
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(model.ProviderEvent{
		ID:       "evt_test_webhook_" + order.ID,
		Object:   "event",
		Type:     model.EventCheckoutSessionCompleted,
		Created:  now.Unix(),
		Livemode: false,
		Data:     model.ProviderEventData{Object: session},
	})
}

func deliverWebhook(ctx context.Context, httpClient *http.Client, target string, payload []byte, signature string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(client.SignatureHeader, signature)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}
