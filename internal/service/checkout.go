package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"strings"
	"time"
)

const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

type CheckoutSession struct {
	OrderID     string
	SessionID   string
	CheckoutURL string
}

type CheckoutService interface {
	BeginCheckout(ctx context.Context, ownerToken string, cart []CartLine) (*CheckoutSession, error)
}

type checkoutServiceImpl struct {
	log            *slog.Logger
	ledger         LedgerService
	paymentClient  client.PaymentClient
	metrics        *metrics.Metrics
	serviceBaseUrl string
}

func NewCheckoutService(
	log *slog.Logger,
	ledger LedgerService,
	paymentClient client.PaymentClient,
	m *metrics.Metrics,
	serviceBaseUrl string,
) CheckoutService {
	return &checkoutServiceImpl{
		log:            log,
		ledger:         ledger,
		paymentClient:  paymentClient,
		metrics:        m,
		serviceBaseUrl: strings.TrimRight(serviceBaseUrl, "/"),
	}
}

// BeginCheckout creates the pending order and opens a hosted checkout session
// for it. If the provider call fails the order stays pending without a
// session id; the sweeper removes it later.
//
// The provider call sits between two local transactions. A provider success
// followed by a failure to store the session id leaves a session nobody can
// correlate; the webhook for it is acknowledged and dropped.
func (s *checkoutServiceImpl) BeginCheckout(ctx context.Context, ownerToken string, cart []CartLine) (*CheckoutSession, error) {
	const op = "service.Checkout.BeginCheckout"
	logger := s.log.With(slog.String("op", op), slog.String("owner", ownerToken))

	if len(cart) == 0 {
		s.metrics.CheckoutSessions.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	order, err := s.ledger.CreatePendingOrder(ctx, ownerToken, cart)
	if err != nil {
		s.metrics.CheckoutSessions.WithLabelValues(checkoutResult(err)).Inc()
		return nil, err
	}

	lineItems := make([]client.LineItem, len(order.Items))
	for i, item := range order.Items {
		lineItems[i] = client.LineItem{
			Name:        item.ProductName,
			Description: item.ProductDescription,
			UnitAmount:  model.ToMinorUnits(item.Price),
			Quantity:    item.Quantity,
		}
	}

	started := time.Now()
	session, err := s.paymentClient.CreateSession(ctx, &client.CreateSessionParams{
		LineItems:         lineItems,
		SuccessURL:        s.serviceBaseUrl + "/api/checkout/success?session_id=" + sessionIDPlaceholder,
		CancelURL:         s.serviceBaseUrl + "/?cancelled=true",
		ClientReferenceID: order.ID,
		Metadata:          map[string]string{"order_id": order.ID},
		IdempotencyKey:    order.ID,
	})
	s.metrics.ObserveProvider("create_session", started)
	if err != nil {
		s.metrics.CheckoutSessions.WithLabelValues("provider_error").Inc()
		logger.Error("create checkout session failed", slog.String("order_id", order.ID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if err := s.ledger.AttachProviderSession(ctx, order.ID, session.ID); err != nil {
		s.metrics.CheckoutSessions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("attach provider session: %w", err)
	}

	s.metrics.CheckoutSessions.WithLabelValues("created").Inc()
	logger.Info("checkout session created", slog.String("order_id", order.ID), slog.String("session_id", session.ID))

	return &CheckoutSession{
		OrderID:     order.ID,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

func checkoutResult(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	default:
		return "error"
	}
}
