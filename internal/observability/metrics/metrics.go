// Package metrics exposes Prometheus instruments for the HTTP surface and the
// billing domain.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	usageEvents     *prometheus.CounterVec
	invoicesCreated *prometheus.CounterVec
}

// New registers and returns the service instruments on the default registry.
func New() *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_http_requests_total",
		Help: "Counts HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tally_http_request_duration_seconds",
		Help:    "HTTP request latency per method/route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	usageEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_usage_events_total",
		Help: "Usage events accepted by metric name.",
	}, []string{"metric"})

	invoicesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_invoices_total",
		Help: "Invoices created by status.",
	}, []string{"status"})

	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		usageEvents,
		invoicesCreated,
	)

	return &Metrics{
		httpRequests:    httpRequests,
		httpDuration:    httpDuration,
		usageEvents:     usageEvents,
		invoicesCreated: invoicesCreated,
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordUsageEvent increments accepted usage event counts.
func (m *Metrics) RecordUsageEvent(metric string) {
	if m == nil {
		return
	}
	m.usageEvents.WithLabelValues(metric).Inc()
}

// RecordInvoiceCreated increments invoice creation counts.
func (m *Metrics) RecordInvoiceCreated(status string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(status).Inc()
}

// Middleware instruments every request using the matched route template so
// path parameters do not explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
