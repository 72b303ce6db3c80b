package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremlin_requests_total",
			Help: "Total number of requests submitted to the server",
		},
		[]string{"processor", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gremlin_request_duration_seconds",
			Help:    "Time from submitting a request to reading its final frame",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"processor"},
	)

	// Pool metrics
	poolConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gremlin_pool_connections",
			Help: "Number of pooled transports by state",
		},
		[]string{"state"},
	)

	poolAcquireWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gremlin_pool_acquire_wait_seconds",
			Help:    "Time spent waiting for a pool slot",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// Transport metrics
	transportEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gremlin_transport_events_total",
			Help: "Transport lifecycle events",
		},
		[]string{"event"},
	)

	initOnce sync.Once
)

// InitMetrics registers the client metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			requestsTotal,
			requestDuration,
			poolConnections,
			poolAcquireWait,
			transportEvents,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records a finished request. status is "ok" or the error kind.
func RecordRequest(processor, status string, duration time.Duration) {
	requestsTotal.WithLabelValues(processor, status).Inc()
	requestDuration.WithLabelValues(processor).Observe(duration.Seconds())
}

// RecordTransportEvent counts a transport lifecycle event. It matches the transport
// event hook signature.
func RecordTransportEvent(event string) {
	transportEvents.WithLabelValues(event).Inc()
}

// PoolObserver feeds pool measurements into the pool metrics.
type PoolObserver struct{}

// PoolConnections sets the busy and idle gauges.
func (PoolObserver) PoolConnections(busy, idle int) {
	poolConnections.WithLabelValues("busy").Set(float64(busy))
	poolConnections.WithLabelValues("idle").Set(float64(idle))
}

// AcquireWait observes the time an acquire spent waiting.
func (PoolObserver) AcquireWait(d time.Duration) {
	poolAcquireWait.Observe(d.Seconds())
}
