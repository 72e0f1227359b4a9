package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records payment-intent and webhook activity.
type CheckoutMetrics struct {
	intents       *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	providerCalls *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Payment-intent operations by kind.",
	}, []string{"operation"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})
	providerCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_duration_seconds",
		Help:    "Duration of provider API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(intents, webhookEvents, providerCalls)
	return &CheckoutMetrics{
		intents:       intents,
		webhookEvents: webhookEvents,
		providerCalls: providerCalls,
	}
}

// IncIntent counts one intent operation (created, amended, confirmed, canceled).
func (c *CheckoutMetrics) IncIntent(operation string) {
	if c == nil || c.intents == nil {
		return
	}
	c.intents.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveWebhook counts one webhook delivery outcome
// (handled, ignored, rejected, duplicate, error).
func (c *CheckoutMetrics) ObserveWebhook(eventType, outcome string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveProviderCall records the duration of one provider API call.
func (c *CheckoutMetrics) ObserveProviderCall(operation string, duration time.Duration) {
	if c == nil || c.providerCalls == nil {
		return
	}
	c.providerCalls.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
