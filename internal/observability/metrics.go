package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	operations      *prometheus.CounterVec
	stockClamps     *prometheus.CounterVec
	stockShortfall  prometheus.Counter
	loadFallbacks   *prometheus.CounterVec
	lowStock        prometheus.Gauge
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics initialises the registry and every application metric.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturier_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facturier_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturier_ledger_operations_total",
		Help: "Ledger mutations by operation and result.",
	}, []string{"op", "result"})
	clamps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturier_stock_clamps_total",
		Help: "Stock decrements floored at zero, per product.",
	}, []string{"product"})
	shortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "facturier_stock_shortfall_units_total",
		Help: "Units sold beyond available stock.",
	})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturier_store_load_fallbacks_total",
		Help: "Documents replaced by defaults when loading the ledger.",
	}, []string{"key"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "facturier_low_stock_products",
		Help: "Products below the low-stock threshold at the last scan.",
	})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facturier_jobs_total",
		Help: "Background jobs by task type and result.",
	}, []string{"task", "result"})
	registry.MustRegister(requests, duration, operations, clamps, shortfall, fallbacks, lowStock, jobs)
	return &Metrics{
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		operations:      operations,
		stockClamps:     clamps,
		stockShortfall:  shortfall,
		loadFallbacks:   fallbacks,
		lowStock:        lowStock,
		jobsTotal:       jobs,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every HTTP request.
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

// ObserveOperation counts a ledger mutation.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result(err)).Inc()
}

// StockClamped counts a stock decrement that hit the zero floor.
func (m *Metrics) StockClamped(productID string, shortfall int) {
	if m == nil {
		return
	}
	m.stockClamps.WithLabelValues(productID).Inc()
	if shortfall > 0 {
		m.stockShortfall.Add(float64(shortfall))
	}
}

// LoadFallback counts a document that was replaced by its default on load.
func (m *Metrics) LoadFallback(key string) {
	if m == nil {
		return
	}
	m.loadFallbacks.WithLabelValues(key).Inc()
}

// SetLowStock publishes the result of the last low-stock scan.
func (m *Metrics) SetLowStock(count int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(count))
}

// ObserveJob counts a background job run.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
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
