// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Cache lookup and store outcomes used as label values.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"

	StoreOK    = "ok"
	StoreError = "error"
)

// RouteProxy labels every request that is not served by a reserved route.
const RouteProxy = "proxy"

// Cache outcome label values for inbound requests.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
	CacheNone = "none"
)

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	CacheLookups *prometheus.CounterVec
	CacheStores  *prometheus.CounterVec
	Proxied      prometheus.Counter
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbo_s_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route", "cache"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turbo_s_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route", "cache"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "turbo_s_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turbo_s_upstream_request_duration_seconds",
			Help:    "Upstream call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbo_s_upstream_responses_total",
			Help: "Total upstream responses by method and status code.",
		}, []string{"method", "status_code"}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbo_s_cache_lookups_total",
			Help: "Cache lookups by result (hit, miss, error).",
		}, []string{"result"}),

		CacheStores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turbo_s_cache_stores_total",
			Help: "Cache inserts by result (ok, error).",
		}, []string{"result"}),

		Proxied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turbo_s_proxied_requests_total",
			Help: "Requests served from upstream on a cache miss.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.CacheLookups,
		m.CacheStores,
		m.Proxied,
	)

	return m
}

// ObserveCacheLookup records a cache lookup outcome. Safe on a nil receiver.
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheStore records a cache insert outcome. Safe on a nil receiver.
func (m *Metrics) ObserveCacheStore(result string) {
	if m == nil {
		return
	}
	m.CacheStores.WithLabelValues(result).Inc()
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// RouteLabeler maps request paths onto a bounded route label. Reserved
// paths keep their own label; every other path is proxied.
type RouteLabeler struct {
	reserved map[string]bool
}

// NewRouteLabeler creates a RouteLabeler for the given reserved paths.
// Empty entries are ignored.
func NewRouteLabeler(reserved ...string) *RouteLabeler {
	l := &RouteLabeler{reserved: make(map[string]bool, len(reserved))}
	for _, p := range reserved {
		if p != "" {
			l.reserved[p] = true
		}
	}
	return l
}

// Label returns path when it is reserved and RouteProxy otherwise.
func (l *RouteLabeler) Label(path string) string {
	if l.reserved[path] {
		return path
	}
	return RouteProxy
}

// CacheLabel maps an X-Cache header value onto a cache label.
func CacheLabel(xCache string) string {
	switch strings.ToUpper(xCache) {
	case "HIT":
		return CacheHit
	case "MISS":
		return CacheMiss
	default:
		return CacheNone
	}
}
