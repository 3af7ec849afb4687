package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request volume and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics leaning on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	reg.MustRegister(requests, duration)
	return &HTTPMetrics{requests: requests, duration: duration}
}

// Observe records one finished request.
func (h *HTTPMetrics) Observe(route, method, status string, elapsed time.Duration) {
	if h == nil || h.requests == nil {
		return
	}
	h.requests.WithLabelValues(route, method, status).Inc()
	h.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// CheckoutMetrics counts materialized orders and payment failures.
type CheckoutMetrics struct {
	ordersCreated   prometheus.Counter
	paymentFailures prometheus.Counter
}

// NewCheckoutMetrics registers the checkout counters.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders materialized from successful checkouts.",
	})
	paymentFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_failures_total",
		Help: "Checkout attempts rejected by the payment gateway.",
	})
	reg.MustRegister(ordersCreated, paymentFailures)
	return &CheckoutMetrics{ordersCreated: ordersCreated, paymentFailures: paymentFailures}
}

// IncOrderCreated counts one confirmed order.
func (c *CheckoutMetrics) IncOrderCreated() {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.Inc()
}

// IncPaymentFailure counts one declined or timed-out payment.
func (c *CheckoutMetrics) IncPaymentFailure() {
	if c == nil || c.paymentFailures == nil {
		return
	}
	c.paymentFailures.Inc()
}
