package restcall

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics for a client. A nil *Collector is
// valid and records nothing, so metrics stay opt-in.
type Collector struct {
	requests       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
}

// NewCollector creates the metric vectors. Call Register (or MustRegister)
// to expose them on a registry.
func NewCollector() *Collector {
	return &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restcall_requests_total",
			Help: "Completed HTTP exchanges by method, operation and status code.",
		}, []string{"method", "operation", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restcall_failures_total",
			Help: "Typed failures surfaced to callers by operation and failure kind.",
		}, []string{"operation", "failure"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restcall_request_duration_seconds",
			Help:    "Wall time of one call through the client, dispatch included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "operation"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restcall_cache_hits_total",
			Help: "Calls served from the response cache.",
		}, []string{"operation"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restcall_cache_misses_total",
			Help: "Cached calls that had to dispatch.",
		}, []string{"operation"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restcall_cache_evictions_total",
			Help: "Cache entries evicted after a failed call.",
		}, []string{"operation"}),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.requests, c.failures, c.duration,
		c.cacheHits, c.cacheMisses, c.cacheEvictions,
	}
}

// Register registers all metric vectors on the given registry.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers all metric vectors, panicking on collision.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.collectors()...)
}

func (c *Collector) recordRequest(method, operation string, status int) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, operation, strconv.Itoa(status)).Inc()
}

func (c *Collector) recordFailure(operation string, err error) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(operation, failureLabel(err)).Inc()
}

func (c *Collector) observeDuration(method, operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(method, operation).Observe(d.Seconds())
}

func (c *Collector) recordCacheHit(operation string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(operation).Inc()
}

func (c *Collector) recordCacheMiss(operation string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(operation).Inc()
}

func (c *Collector) recordCacheEviction(operation string) {
	if c == nil {
		return
	}
	c.cacheEvictions.WithLabelValues(operation).Inc()
}

// failureLabel names a TypedFailure for the failures_total metric.
func failureLabel(err error) string {
	var (
		protocol     *ProtocolError
		read         *ReadError
		clientSide   *ClientSideError
		serverSide   *ServerSideError
		conflict     *ConflictError
		connection   *ConnectionError
		endpoint     *EndpointError
		construction *ConstructionError
	)
	switch {
	case errors.As(err, &protocol):
		return "protocol"
	case errors.As(err, &read):
		return "read"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &connection):
		return "connection"
	case errors.As(err, &endpoint):
		return "endpoint"
	case errors.As(err, &clientSide):
		return "client_side"
	case errors.As(err, &serverSide):
		return "server_side"
	case errors.As(err, &construction):
		return "construction"
	default:
		return "other"
	}
}
