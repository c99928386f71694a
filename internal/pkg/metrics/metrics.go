package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Database metrics
	dbQueriesTotal   *prometheus.CounterVec
	dbQueryDuration  *prometheus.HistogramVec
	dbConnectionsOpen prometheus.Gauge

	// Marketplace metrics
	marketplaceCallsTotal   *prometheus.CounterVec
	marketplaceCallDuration *prometheus.HistogramVec

	// Sync metrics
	syncRunsTotal     *prometheus.CounterVec
	syncItemsTotal    *prometheus.CounterVec
	syncRunDuration   *prometheus.HistogramVec
	ordersImported    *prometheus.CounterVec
	ordersDeduplicated *prometheus.CounterVec

	// Outbox metrics
	outboxPublishedTotal *prometheus.CounterVec
	outboxPendingGauge   prometheus.Gauge
}

// New creates a new Metrics instance with a dedicated registry
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	constLabels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),

		httpRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being served",
			ConstLabels: constLabels,
		}),

		dbQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_queries_total",
			Help:        "Total number of database queries",
			ConstLabels: constLabels,
		}, []string{"collection", "operation", "status"}),

		dbQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"collection", "operation"}),

		dbConnectionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "db_connections_open",
			Help:        "Number of open database connections",
			ConstLabels: constLabels,
		}),

		marketplaceCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "marketplace_calls_total",
			Help:        "Total number of outbound marketplace API calls",
			ConstLabels: constLabels,
		}, []string{"marketplace", "operation", "status"}),

		marketplaceCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "marketplace_call_duration_seconds",
			Help:        "Marketplace API call duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"marketplace", "operation"}),

		syncRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "sync_runs_total",
			Help:        "Total number of synchronization runs",
			ConstLabels: constLabels,
		}, []string{"marketplace", "sync_type", "status"}),

		syncItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "sync_items_total",
			Help:        "Total number of items processed by sync runs",
			ConstLabels: constLabels,
		}, []string{"marketplace", "sync_type", "result"}),

		syncRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "sync_run_duration_seconds",
			Help:        "Synchronization run duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"marketplace", "sync_type"}),

		ordersImported: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "orders_imported_total",
			Help:        "Total number of orders imported from marketplaces",
			ConstLabels: constLabels,
		}, []string{"marketplace"}),

		ordersDeduplicated: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "orders_deduplicated_total",
			Help:        "Total number of duplicate orders skipped during import",
			ConstLabels: constLabels,
		}, []string{"marketplace"}),

		outboxPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "outbox_events_published_total",
			Help:        "Total number of outbox events published",
			ConstLabels: constLabels,
		}, []string{"event_type", "status"}),

		outboxPendingGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "outbox_events_pending",
			Help:        "Number of outbox events pending publication",
			ConstLabels: constLabels,
		}),
	}
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncHTTPInFlight increments in-flight requests
func (m *Metrics) IncHTTPInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecHTTPInFlight decrements in-flight requests
func (m *Metrics) DecHTTPInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(collection, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.dbQueriesTotal.WithLabelValues(collection, operation, status).Inc()
	m.dbQueryDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// SetDBConnections sets the open connection gauge
func (m *Metrics) SetDBConnections(n int) {
	m.dbConnectionsOpen.Set(float64(n))
}

// RecordMarketplaceCall records an outbound marketplace API call
func (m *Metrics) RecordMarketplaceCall(marketplace, operation string, status int, duration time.Duration) {
	m.marketplaceCallsTotal.WithLabelValues(marketplace, operation, strconv.Itoa(status)).Inc()
	m.marketplaceCallDuration.WithLabelValues(marketplace, operation).Observe(duration.Seconds())
}

// RecordSyncRun records a completed synchronization run
func (m *Metrics) RecordSyncRun(marketplace, syncType, status string, duration time.Duration) {
	m.syncRunsTotal.WithLabelValues(marketplace, syncType, status).Inc()
	m.syncRunDuration.WithLabelValues(marketplace, syncType).Observe(duration.Seconds())
}

// RecordSyncItems records item-level sync outcomes
func (m *Metrics) RecordSyncItems(marketplace, syncType, result string, count int) {
	if count > 0 {
		m.syncItemsTotal.WithLabelValues(marketplace, syncType, result).Add(float64(count))
	}
}

// RecordOrderImported records an imported order
func (m *Metrics) RecordOrderImported(marketplace string) {
	m.ordersImported.WithLabelValues(marketplace).Inc()
}

// RecordOrderDeduplicated records a skipped duplicate order
func (m *Metrics) RecordOrderDeduplicated(marketplace string) {
	m.ordersDeduplicated.WithLabelValues(marketplace).Inc()
}

// RecordOutboxPublished records an outbox publish attempt
func (m *Metrics) RecordOutboxPublished(eventType string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.outboxPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// SetOutboxPending sets the pending outbox events gauge
func (m *Metrics) SetOutboxPending(n int) {
	m.outboxPendingGauge.Set(float64(n))
}
