// Package metrics exposes Prometheus collectors for the HTTP API and the
// marketplace, payout and AI pipelines.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardshow",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardshow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "marketplace",
			Name:      "checkouts_total",
			Help:      "Checkout sessions by outcome (created, completed, expired, failed).",
		},
		[]string{"outcome"},
	)

	salesCents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "marketplace",
			Name:      "sales_cents_total",
			Help:      "Gross sales volume in minor currency units.",
		},
		[]string{"currency"},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "payouts",
			Name:      "transfers_total",
			Help:      "Creator payout transfers by status.",
		},
		[]string{"status"},
	)

	analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "ai",
			Name:      "analyses_total",
			Help:      "Card image analyses by status.",
		},
		[]string{"status"},
	)

	analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cardshow",
			Subsystem: "ai",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of card image analyses.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~13s
		},
	)

	psdImports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "psd",
			Name:      "imports_total",
			Help:      "PSD imports by status.",
		},
		[]string{"status"},
	)

	batchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardshow",
			Subsystem: "uploads",
			Name:      "batch_items_total",
			Help:      "Bulk upload items processed by status.",
		},
		[]string{"status"},
	)

	realtimeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardshow",
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Currently connected realtime clients.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		checkouts,
		salesCents,
		payouts,
		analyses,
		analysisDuration,
		psdImports,
		batchItems,
		realtimeClients,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := CanonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordCheckout(outcome string) {
	checkouts.WithLabelValues(outcome).Inc()
}

func RecordSale(currency string, grossCents int64) {
	salesCents.WithLabelValues(currency).Add(float64(grossCents))
}

func RecordPayout(status string) {
	payouts.WithLabelValues(status).Inc()
}

func RecordAnalysis(status string, duration time.Duration) {
	analyses.WithLabelValues(status).Inc()
	analysisDuration.Observe(duration.Seconds())
}

func RecordPSDImport(status string) {
	psdImports.WithLabelValues(status).Inc()
}

func RecordBatchItem(status string) {
	batchItems.WithLabelValues(status).Inc()
}

func RealtimeConnected() {
	realtimeClients.Inc()
}

func RealtimeDisconnected() {
	realtimeClients.Dec()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// CanonicalPath collapses ids so label cardinality stays bounded:
// /api/cards/3f2a.../effects becomes /api/cards/:id/effects.
func CanonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}

	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		if looksLikeID(part) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(s string) bool {
	if len(s) == 36 && strings.Count(s, "-") == 4 {
		return true
	}
	// Stripe style ids (cs_..., acct_...)
	if i := strings.IndexByte(s, '_'); i > 0 && i < 6 && len(s) > 12 {
		return true
	}
	return false
}
