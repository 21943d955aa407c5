package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardlink",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	cardsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardlink",
			Name:      "cards_sent_total",
			Help:      "Profile cards sent.",
		},
	)

	paymentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardlink",
			Name:      "payments_processed_total",
			Help:      "Payment transactions settled by admins.",
		},
		[]string{"type", "outcome"},
	)

	quotaDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardlink",
			Name:      "quota_denied_total",
			Help:      "Creations rejected because the monthly quota was used up.",
		},
		[]string{"kind"},
	)

	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cardlink",
			Name:      "subscriptions_expired_total",
			Help:      "Subscriptions moved to expired by the sweep job.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		cardsSent,
		paymentsProcessed,
		quotaDenied,
		subscriptionsExpired,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records in-flight, totals and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		httpInFlight.Inc()
		start := time.Now()
		c.Next()
		httpInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func CardSent() { cardsSent.Inc() }

func PaymentProcessed(txType, outcome string) {
	paymentsProcessed.WithLabelValues(txType, outcome).Inc()
}

func QuotaDenied(kind string) { quotaDenied.WithLabelValues(kind).Inc() }

func SubscriptionsExpired(n int64) { subscriptionsExpired.Add(float64(n)) }
