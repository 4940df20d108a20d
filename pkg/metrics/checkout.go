package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout paths label which entry point materialized an order.
const (
	PathDirect  = "direct"
	PathWebhook = "webhook"
	PathSession = "session"
)

// CheckoutMetrics records order materialization, webhook reconciliation and
// notification outcomes.
type CheckoutMetrics struct {
	duration      *prometheus.HistogramVec
	orders        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_materialized_total",
		Help: "Orders created, by entry point.",
	}, []string{"path"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed checkout operations, by entry point and error code.",
	}, []string{"path", "code"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries, by outcome.",
	}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Order confirmation notifications, by result.",
	}, []string{"result"})
	reg.MustRegister(duration, orders, failures, webhookEvents, notifications)
	return &CheckoutMetrics{
		duration:      duration,
		orders:        orders,
		failures:      failures,
		webhookEvents: webhookEvents,
		notifications: notifications,
	}
}

// ObserveDuration records how long a checkout operation took.
func (c *CheckoutMetrics) ObserveDuration(path string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(path)).Observe(duration.Seconds())
}

// IncOrder counts a committed order.
func (c *CheckoutMetrics) IncOrder(path string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncFailure counts a failed checkout operation.
func (c *CheckoutMetrics) IncFailure(path, code string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(path), normalizeLabel(code)).Inc()
}

// IncWebhookEvent counts a webhook delivery by outcome (processed, ignored,
// duplicate, failed).
func (c *CheckoutMetrics) IncWebhookEvent(outcome string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncNotification counts a notification attempt by result (sent, failed).
func (c *CheckoutMetrics) IncNotification(result string) {
	if c == nil || c.notifications == nil {
		return
	}
	c.notifications.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
