// Package metrics provides Prometheus metrics for the flight search service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	lookupEvents       *prometheus.CounterVec
	providerRequests   *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	searches           *prometheus.CounterVec
	searchResults      prometheus.Histogram
	cacheLookups       *prometheus.CounterVec
	historyOperations  *prometheus.CounterVec
	persistenceErrors  *prometheus.CounterVec
	lookupSessions     prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the registry collectors are registered on.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

var globalManager = NewManager() //nolint:gochecknoglobals // process-wide metrics singleton

// NewManager creates a manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "flightscout",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.lookupEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "lookup",
		Name:      "events_total",
		Help:      "Debounced lookup transitions by kind (fired, applied, discarded, failed, cleared)",
	}, []string{"kind"})

	m.lookupSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "lookup",
		Name:      "sessions",
		Help:      "Live per-field lookup sessions",
	})

	m.providerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Provider calls by provider, operation and outcome",
	}, []string{"provider", "operation", "outcome"})

	m.providerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "provider",
		Name:      "request_duration_milliseconds",
		Help:      "Provider call latency in milliseconds, retries included",
		Buckets:   m.histogramBuckets,
	}, []string{"provider", "operation"})

	m.searches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Flight searches by outcome",
	}, []string{"outcome"})

	m.searchResults = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "search",
		Name:      "results",
		Help:      "Flights returned per search after filtering",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by kind and result",
	}, []string{"kind", "result"})

	m.historyOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "history",
		Name:      "operations_total",
		Help:      "Search history upserts by operation (insert, increment)",
	}, []string{"operation"})

	m.persistenceErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Store failures by collection",
	}, []string{"collection"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) RecordLookupEvent(kind string) {
	m.lookupEvents.WithLabelValues(kind).Inc()
}

func (m *Manager) SetLookupSessions(n int) {
	m.lookupSessions.Set(float64(n))
}

func (m *Manager) RecordProviderRequest(provider, operation, outcome string, durationMs float64) {
	m.providerRequests.WithLabelValues(provider, operation, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, operation).Observe(durationMs)
}

func (m *Manager) RecordSearch(outcome string, results int) {
	m.searches.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.searchResults.Observe(float64(results))
	}
}

func (m *Manager) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Manager) RecordHistoryOperation(operation string) {
	m.historyOperations.WithLabelValues(operation).Inc()
}

func (m *Manager) RecordPersistenceError(collection string) {
	m.persistenceErrors.WithLabelValues(collection).Inc()
}

func (m *Manager) RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestLatency.WithLabelValues(route, method).Observe(durationMs)
}

// Package-level helpers record on the global manager.

func RecordLookupEvent(kind string) {
	globalManager.RecordLookupEvent(kind)
}

func SetLookupSessions(n int) {
	globalManager.SetLookupSessions(n)
}

func RecordProviderRequest(provider, operation, outcome string, durationMs float64) {
	globalManager.RecordProviderRequest(provider, operation, outcome, durationMs)
}

func RecordSearch(outcome string, results int) {
	globalManager.RecordSearch(outcome, results)
}

func RecordCacheLookup(kind string, hit bool) {
	globalManager.RecordCacheLookup(kind, hit)
}

func RecordHistoryOperation(operation string) {
	globalManager.RecordHistoryOperation(operation)
}

func RecordPersistenceError(collection string) {
	globalManager.RecordPersistenceError(collection)
}

func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(route, method, statusCode, durationMs)
}

// Handler serves the global registry.
func Handler() http.Handler { return globalManager.Handler() }

// GetRegistry returns the global registry.
func GetRegistry() *prometheus.Registry { return globalManager.Registry() }
