package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Connection sources for ConnectionsCreated.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// Collector holds the Prometheus metrics for the application. Each collector
// owns a private registry so several can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	PersonsAdded           prometheus.Counter
	PersonsRemoved         prometheus.Counter
	ConnectionsCreated     *prometheus.CounterVec
	ConnectionsRemoved     prometheus.Counter
	RecommendationRequests prometheus.Counter
	AnalysisDuration       *prometheus.HistogramVec

	NetworkPersons     prometheus.Gauge
	NetworkConnections prometheus.Gauge

	StorageOperations *prometheus.CounterVec
	StorageDuration   *prometheus.HistogramVec
}

// NewCollector creates a collector with every metric under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PersonsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persons_added_total",
			Help:      "Total number of persons added",
		}),
		PersonsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persons_removed_total",
			Help:      "Total number of persons removed",
		}),
		ConnectionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_created_total",
			Help:      "Total number of friendships created",
		}, []string{"source"}),
		ConnectionsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_removed_total",
			Help:      "Total number of friendships removed",
		}),
		RecommendationRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_requests_total",
			Help:      "Total number of recommendation requests",
		}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"analysis"}),
		NetworkPersons: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_persons",
			Help:      "Current number of persons",
		}),
		NetworkConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_connections",
			Help:      "Current number of friendships",
		}),
		StorageOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage operations",
		}, []string{"backend", "operation", "status"}),
		StorageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Storage operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.PersonsAdded,
		c.PersonsRemoved,
		c.ConnectionsCreated,
		c.ConnectionsRemoved,
		c.RecommendationRequests,
		c.AnalysisDuration,
		c.NetworkPersons,
		c.NetworkConnections,
		c.StorageOperations,
		c.StorageDuration,
	)
	return c
}

// Registry exposes the private registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordConnections counts n new friendships from source.
func (c *Collector) RecordConnections(source string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ConnectionsCreated.WithLabelValues(source).Add(float64(n))
}

// RecordAnalysis observes how long an analysis took.
func (c *Collector) RecordAnalysis(analysis string, d time.Duration) {
	if c == nil {
		return
	}
	c.AnalysisDuration.WithLabelValues(analysis).Observe(d.Seconds())
}

// RecordStorage records one repository call.
func (c *Collector) RecordStorage(backend, operation string, err error, d time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StorageOperations.WithLabelValues(backend, operation, status).Inc()
	c.StorageDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// SetNetworkSize updates the size gauges.
func (c *Collector) SetNetworkSize(persons, connections int) {
	if c == nil {
		return
	}
	c.NetworkPersons.Set(float64(persons))
	c.NetworkConnections.Set(float64(connections))
}

// RecordPersonAdded counts one new person.
func (c *Collector) RecordPersonAdded() {
	if c != nil {
		c.PersonsAdded.Inc()
	}
}

// RecordPersonRemoved counts one removed person.
func (c *Collector) RecordPersonRemoved() {
	if c != nil {
		c.PersonsRemoved.Inc()
	}
}

// RecordDisconnect counts one removed friendship.
func (c *Collector) RecordDisconnect() {
	if c != nil {
		c.ConnectionsRemoved.Inc()
	}
}

// RecordRecommendation counts one recommendation request.
func (c *Collector) RecordRecommendation() {
	if c != nil {
		c.RecommendationRequests.Inc()
	}
}
