package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/bayala/bayala-stock/internal/jobs"
)

// Metrics collects the Prometheus metrics of the HTTP service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	submitDuration  *prometheus.HistogramVec
	stockChecks     *prometheus.CounterVec
	stockDuration   prometheus.Histogram
	catalogProducts prometheus.Gauge
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, sales and job metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bayala_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bayala_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bayala_submissions_total",
		Help: "Draft submission attempts by mode and outcome.",
	}, []string{"mode", "outcome"})
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bayala_submission_duration_seconds",
		Help:    "Duration of draft submissions including the stock check.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	stockChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bayala_stock_checks_total",
		Help: "Advisory stock checks by result.",
	}, []string{"result"})
	stockDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bayala_stock_check_duration_seconds",
		Help:    "Duration of advisory stock checks.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	catalogProducts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bayala_catalog_products",
		Help: "Products in the most recently loaded catalog.",
	})
	registry.MustRegister(requests, duration, submissions, submitDuration, stockChecks, stockDuration, catalogProducts)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		submissions:     submissions,
		submitDuration:  submitDuration,
		stockChecks:     stockChecks,
		stockDuration:   stockDuration,
		catalogProducts: catalogProducts,
		jobs:            jobmetrics.NewMetrics(registry),
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

// ObserveSubmission records the outcome of one submission attempt.
func (m *Metrics) ObserveSubmission(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(mode, outcome).Inc()
	m.submitDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveStockCheck records one advisory stock check.
func (m *Metrics) ObserveStockCheck(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stockChecks.WithLabelValues(result).Inc()
	m.stockDuration.Observe(elapsed.Seconds())
}

// SetCatalogSize records the size of the loaded catalog.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogProducts.Set(float64(n))
}

// Jobs returns the background job metrics registered on the same registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for additional collectors.
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
