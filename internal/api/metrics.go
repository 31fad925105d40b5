package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	tierTotal         *prometheus.CounterVec
	conversions       *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagetools_api_requests_total",
			Help: "Total HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagetools_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagetools_api_rate_limit_rejections_total",
			Help: "Total API requests rejected by rate limiting.",
		}, []string{"route"}),
		tierTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagetools_pipeline_tier_total",
			Help: "Image tool results by the processing tier that produced them.",
		}, []string{"tool", "tier"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagetools_document_conversions_total",
			Help: "Word to PDF conversions by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.tierTotal,
		m.conversions,
	)
	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := routeLabel(r.URL.Path)
		status := strconv.Itoa(recorder.status)

		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

var knownRoutes = map[string]bool{
	"/healthz":                             true,
	"/metrics":                             true,
	"/api/tools/image/health":              true,
	"/api/tools/image/crop":                true,
	"/api/tools/image/resize":              true,
	"/api/tools/image/rotate-flip":         true,
	"/api/tools/image/rotate-flip/combine": true,
	"/api/tools/image/color-restore":       true,
	"/api/tools/image/unblur":              true,
	"/api/tools/image/auto-enhance":        true,
	"/api/tools/image/artistic-filter":     true,
	"/api/convert/health":                  true,
	"/api/convert/word-to-pdf":             true,
	"/api/convert/batch/word-to-pdf":       true,
}

// routeLabel keeps metric and span cardinality bounded: unknown paths
// collapse into one label.
func routeLabel(path string) string {
	path = strings.TrimSuffix(path, "/")
	switch {
	case knownRoutes[path]:
		return path
	case strings.HasPrefix(path, "/api/tools/image/") && strings.HasSuffix(path, "/health"):
		return "/api/tools/image/{tool}/health"
	default:
		return "unmatched"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
