package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrefix namespaces every metric name.
const DefaultPrefix = "gofood"

// Recorder owns a private registry with the HTTP and reservation metrics.
type Recorder struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	bookingsSubmitted    prometheus.Counter
	transitions          *prometheus.CounterVec
	conflicts            *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	rateLimited          prometheus.Counter
}

// NewRecorder registers all metrics under prefix. Go runtime and process collectors are
// included.
func NewRecorder(prefix string) *Recorder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		bookingsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_bookings_submitted_total",
			Help: "Total number of public booking requests stored as pending",
		}),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_reservation_transitions_total",
				Help: "Total number of reservation status transitions",
			},
			[]string{"from", "to"},
		),
		conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_reservation_conflicts_total",
				Help: "Total number of staff actions rejected with a conflict",
			},
			[]string{"reason"},
		),
		notificationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_notification_failures_total",
				Help: "Total number of reservation notifications that could not be delivered",
			},
			[]string{"event"},
		),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_booking_rate_limited_total",
			Help: "Total number of public requests refused by the rate limiter",
		}),
	}
}

// BookingSubmitted counts a stored public booking.
func (r *Recorder) BookingSubmitted() {
	r.bookingsSubmitted.Inc()
}

// Transitioned counts a committed status change.
func (r *Recorder) Transitioned(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// Conflict counts a staff action refused because of concurrent state.
func (r *Recorder) Conflict(reason string) {
	r.conflicts.WithLabelValues(reason).Inc()
}

// NotificationFailed counts an undelivered notification.
func (r *Recorder) NotificationFailed(kind string) {
	r.notificationFailures.WithLabelValues(kind).Inc()
}

// RateLimited counts a refused public request.
func (r *Recorder) RateLimited() {
	r.rateLimited.Inc()
}

// Middleware records count and latency for every request, labelled by route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		r.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		r.httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
