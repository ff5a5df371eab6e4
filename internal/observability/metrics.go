package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and the mail worker.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	donationsInitiatedTotal prometheus.Counter
	reconciliationsTotal    *prometheus.CounterVec
	mailsSentTotal          prometheus.Counter
	mailsFailedTotal        *prometheus.CounterVec
	mailSendDuration        prometheus.Histogram
	workerInflight          prometheus.Gauge
	retryScheduledTotal     prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "donation_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "donation_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		donationsInitiatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "donation_engine",
				Name:      "donations_initiated_total",
				Help:      "Total number of donations created with a gateway authorization URL.",
			},
		),
		reconciliationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "donation_engine",
				Name:      "reconciliations_total",
				Help:      "Total number of reconciliation attempts grouped by outcome.",
			},
			[]string{"outcome"},
		),
		mailsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "donation_engine",
				Name:      "mails_sent_total",
				Help:      "Total number of confirmation mails delivered to the SMTP relay.",
			},
		),
		mailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "donation_engine",
				Name:      "mails_failed_total",
				Help:      "Total number of confirmation mails that exhausted their retries.",
			},
			[]string{"reason"},
		),
		mailSendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "donation_engine",
				Name:      "mail_send_duration_seconds",
				Help:      "SMTP send duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "donation_engine",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight mail deliveries.",
			},
		),
		retryScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "donation_engine",
				Name:      "retry_scheduled_total",
				Help:      "Total number of mail deliveries scheduled for retry.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.donationsInitiatedTotal,
		m.reconciliationsTotal,
		m.mailsSentTotal,
		m.mailsFailedTotal,
		m.mailSendDuration,
		m.workerInflight,
		m.retryScheduledTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDonationInitiated() {
	if m == nil {
		return
	}
	m.donationsInitiatedTotal.Inc()
}

func (m *Metrics) IncReconciliation(outcome string) {
	if m == nil {
		return
	}
	outcomeLabel := strings.TrimSpace(strings.ToLower(outcome))
	if outcomeLabel == "" {
		outcomeLabel = "unknown"
	}
	m.reconciliationsTotal.WithLabelValues(outcomeLabel).Inc()
}

func (m *Metrics) IncMailSent() {
	if m == nil {
		return
	}
	m.mailsSentTotal.Inc()
}

func (m *Metrics) IncMailFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.mailsFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) ObserveMailSendDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.mailSendDuration.Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
}

func (m *Metrics) IncRetryScheduled() {
	if m == nil {
		return
	}
	m.retryScheduledTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
