package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/repository"
	"time"
)

type WebhookOutcome string

const (
	OutcomeReconciled     WebhookOutcome = "reconciled"
	OutcomeAlreadyPaid    WebhookOutcome = "already_paid"
	OutcomeOrderNotFound  WebhookOutcome = "order_not_found"
	OutcomePaymentPending WebhookOutcome = "payment_pending"
	OutcomeIgnored        WebhookOutcome = "ignored"
	OutcomeDuplicate      WebhookOutcome = "duplicate"
)

// ReconcileService applies payment confirmations from the redirect return and
// from webhook deliveries. Both end in LedgerService.MarkPaid.
type ReconcileService interface {
	VerifyRedirect(ctx context.Context, sessionID string) (*model.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error)
}

type reconcileServiceImpl struct {
	log              *slog.Logger
	ledger           LedgerService
	paymentClient    client.PaymentClient
	webhookEventRepo repository.WebhookEventRepository
	metrics          *metrics.Metrics
	paymentCfg       config.Payment
	now              func() time.Time
}

func NewReconcileService(
	log *slog.Logger,
	ledger LedgerService,
	paymentClient client.PaymentClient,
	webhookEventRepo repository.WebhookEventRepository,
	m *metrics.Metrics,
	paymentCfg config.Payment,
) ReconcileService {
	return &reconcileServiceImpl{
		log:              log,
		ledger:           ledger,
		paymentClient:    paymentClient,
		webhookEventRepo: webhookEventRepo,
		metrics:          m,
		paymentCfg:       paymentCfg,
		now:              time.Now,
	}
}

// VerifyRedirect asks the provider for the session's status; the query
// string the buyer came back with is never trusted on its own.
func (s *reconcileServiceImpl) VerifyRedirect(ctx context.Context, sessionID string) (*model.Order, error) {
	const op = "service.Reconcile.VerifyRedirect"
	logger := s.log.With(slog.String("op", op), slog.String("session_id", sessionID))

	if sessionID == "" {
		return nil, ErrOrderNotFound
	}

	started := time.Now()
	session, err := s.paymentClient.GetSession(ctx, sessionID)
	s.metrics.ObserveProvider("get_session", started)
	if err != nil {
		logger.Warn("could not verify session with provider", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	order, err := s.ledger.GetOrder(ctx, BySessionID(sessionID))
	if err != nil {
		logger.Warn("no order for returning session", slog.Any("error", err))
		return nil, err
	}

	if !isSessionPaid(session.PaymentStatus) || order.IsPaid() {
		return order, nil
	}

	result, err := s.ledger.MarkPaid(ctx, BySessionID(sessionID), session.PaymentIntent, metrics.SourceRedirect)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

// HandleWebhook authenticates and applies one delivery. A nil error means the
// delivery must be acknowledged, including deliveries that changed nothing.
func (s *reconcileServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	const op = "service.Reconcile.HandleWebhook"
	logger := s.log.With(slog.String("op", op))

	if err := s.authenticate(payload, signature); err != nil {
		s.metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		logger.Warn("webhook rejected", slog.Any("error", err))
		return "", err
	}

	event, err := client.DecodeEvent(payload)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		logger.Warn("webhook payload malformed", slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	kind := eventKind(event)
	logger = logger.With(slog.String("event_id", event.EventID()), slog.String("event_type", event.EventType()))

	if event.EventID() != "" {
		seen, err := s.webhookEventRepo.Exists(ctx, event.EventID())
		if err != nil {
			return "", fmt.Errorf("check webhook event: %w", err)
		}
		if seen {
			s.metrics.WebhookEvents.WithLabelValues(kind, string(OutcomeDuplicate)).Inc()
			logger.Info("webhook event already processed")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		logger.Error("webhook processing failed", slog.Any("error", err))
		return "", err
	}

	if event.EventID() != "" {
		if err := s.webhookEventRepo.MarkProcessed(ctx, event.EventID(), event.EventType()); err != nil {
			// a redelivery of this event is still harmless: MarkPaid is idempotent
			logger.Warn("record processed webhook event", slog.Any("error", err))
		}
	}

	s.metrics.WebhookEvents.WithLabelValues(kind, string(outcome)).Inc()
	logger.Info("webhook handled", slog.String("outcome", string(outcome)))
	return outcome, nil
}

func (s *reconcileServiceImpl) authenticate(payload []byte, signature string) error {
	if signature == "" && s.paymentCfg.AllowUnsignedWebhooks {
		s.log.Warn("accepting unsigned webhook delivery")
		return nil
	}

	err := client.VerifySignature(payload, signature, s.paymentCfg.WebhookSecret, s.paymentCfg.SignatureTolerance, s.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return nil
}

func (s *reconcileServiceImpl) dispatch(ctx context.Context, event client.Event) (WebhookOutcome, error) {
	switch ev := event.(type) {
	case *client.CheckoutCompletedEvent:
		// delayed payment methods complete the session before the money arrives
		if ev.PaymentStatus == model.SessionPaymentUnpaid {
			return OutcomePaymentPending, nil
		}
		return s.settle(ctx, ev.SessionID, ev.PaymentIntentID)
	case *client.AsyncPaymentSucceededEvent:
		return s.settle(ctx, ev.SessionID, ev.PaymentIntentID)
	case *client.UnrecognizedEvent:
		return OutcomeIgnored, nil
	default:
		return OutcomeIgnored, nil
	}
}

func (s *reconcileServiceImpl) settle(ctx context.Context, sessionID, paymentID string) (WebhookOutcome, error) {
	result, err := s.ledger.MarkPaid(ctx, BySessionID(sessionID), paymentID, metrics.SourceWebhook)
	if errors.Is(err, ErrOrderNotFound) {
		return OutcomeOrderNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if result.Transitioned {
		return OutcomeReconciled, nil
	}
	return OutcomeAlreadyPaid, nil
}

func isSessionPaid(status string) bool {
	return status == model.SessionPaymentPaid || status == model.SessionPaymentNoPaymentRequired
}

func eventKind(event client.Event) string {
	if _, ok := event.(*client.UnrecognizedEvent); ok {
		return "other"
	}
	return event.EventType()
}
