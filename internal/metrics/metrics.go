package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Transition sources.
const (
	SourceRedirect = "redirect"
	SourceWebhook  = "webhook"
)

type Metrics struct {
	CheckoutSessions *prometheus.CounterVec
	OrderTransitions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Orders moved from pending to paid, by the path that won.",
		}, []string{"source"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event kind and outcome.",
		}, []string{"kind", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Payment provider call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
	}

	reg.MustRegister(m.CheckoutSessions, m.OrderTransitions, m.WebhookEvents, m.ProviderLatency)
	return m
}

func (m *Metrics) ObserveProvider(op string, started time.Time) {
	m.ProviderLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
