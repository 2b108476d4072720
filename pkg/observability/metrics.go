package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Chat metrics
	CompletionsTotal    *prometheus.CounterVec
	CompletionDuration  *prometheus.HistogramVec
	MessagesTotal       *prometheus.CounterVec
	ConversationsActive prometheus.Gauge

	// Usage and entitlement metrics
	AnalysesTotal      *prometheus.CounterVec
	LimitRejectedTotal *prometheus.CounterVec

	// Audio metrics
	UploadsTotal     *prometheus.CounterVec
	UploadSizeBytes  prometheus.Histogram
	BlobWriteSeconds *prometheus.HistogramVec

	// Billing metrics
	WebhookEventsTotal    *prometheus.CounterVec
	CheckoutSessionsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Session metrics
	SessionsCreatedTotal prometheus.Counter
	SessionLookupsTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mixmentor_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mixmentor_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		CompletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_completions_total",
				Help: "Total number of model completion calls",
			},
			[]string{"kind", "status"},
		),
		CompletionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mixmentor_completion_duration_seconds",
				Help:    "Model completion round-trip duration in seconds",
				Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"kind"},
		),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_messages_total",
				Help: "Total number of persisted chat messages",
			},
			[]string{"role"},
		),
		ConversationsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mixmentor_conversations_active",
				Help: "Number of conversations updated in the last 24 hours",
			},
		),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_analyses_total",
				Help: "Total number of recorded usage events",
			},
			[]string{"usage_type", "tier"},
		),
		LimitRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_limit_rejected_total",
				Help: "Total number of requests rejected by tier limits",
			},
			[]string{"usage_type", "tier"},
		),

		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_uploads_total",
				Help: "Total number of audio uploads",
			},
			[]string{"status"},
		),
		UploadSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mixmentor_upload_size_bytes",
				Help:    "Decoded audio upload size in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		BlobWriteSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mixmentor_blob_write_duration_seconds",
				Help:    "Blob store write duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),

		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_webhook_events_total",
				Help: "Total number of billing webhook events",
			},
			[]string{"type", "status"},
		),
		CheckoutSessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_checkout_sessions_total",
				Help: "Total number of checkout sessions created",
			},
			[]string{"tier"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mixmentor_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mixmentor_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mixmentor_sessions_created_total",
				Help: "Total number of login sessions created",
			},
		),
		SessionLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixmentor_session_lookups_total",
				Help: "Total number of session token lookups",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.CompletionsTotal,
		m.CompletionDuration,
		m.MessagesTotal,
		m.ConversationsActive,
		m.AnalysesTotal,
		m.LimitRejectedTotal,
		m.UploadsTotal,
		m.UploadSizeBytes,
		m.BlobWriteSeconds,
		m.WebhookEventsTotal,
		m.CheckoutSessionsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.SessionsCreatedTotal,
		m.SessionLookupsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
