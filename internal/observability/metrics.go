package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// Metrics collects Prometheus metrics for the ledger service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	postingsTotal       *prometheus.CounterVec
	postingRejections   *prometheus.CounterVec
	postingDuration     *prometheus.HistogramVec
	reconcileMismatches *prometheus.CounterVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_postings_total",
		Help: "Committed postings by transaction and product type.",
	}, []string{"type", "product"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_posting_rejections_total",
		Help: "Rejected postings by reason.",
	}, []string{"reason"})
	postingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finledger_posting_commit_duration_seconds",
		Help:    "Time from validation start to committed posting.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	mismatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finledger_reconcile_mismatches_total",
		Help: "Balance mismatches detected by reconciliation, by product type.",
	}, []string{"product"})
	registry.MustRegister(requests, duration, postings, rejections, postingDuration, mismatches)
	return &Metrics{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:       requests,
		requestDuration:     duration,
		postingsTotal:       postings,
		postingRejections:   rejections,
		postingDuration:     postingDuration,
		reconcileMismatches: mismatches,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// PostingCommitted implements the posting engine's metrics port.
func (m *Metrics) PostingCommitted(txType shared.TransactionType, productType shared.ProductType, duration time.Duration) {
	if m == nil {
		return
	}
	m.postingsTotal.WithLabelValues(string(txType), string(productType)).Inc()
	m.postingDuration.WithLabelValues(string(txType)).Observe(duration.Seconds())
}

// PostingRejected implements the posting engine's metrics port.
func (m *Metrics) PostingRejected(reason string) {
	if m == nil {
		return
	}
	m.postingRejections.WithLabelValues(reason).Inc()
}

// ReconcileMismatch implements the reconciliation metrics port.
func (m *Metrics) ReconcileMismatch(productType shared.ProductType) {
	if m == nil {
		return
	}
	m.reconcileMismatches.WithLabelValues(string(productType)).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
