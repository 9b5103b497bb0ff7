package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	cacheRefreshes      *prometheus.CounterVec
	inviteAttempts      prometheus.Counter
	inviteFailures      prometheus.Counter
}

// New creates a fresh Metrics registry with HTTP, device-cache, and
// invite metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by hubd",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hub",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by hubd",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "device_cache_hits_total",
		Help:      "Device cache reads served from a live entry",
	}, []string{"cache"})

	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "device_cache_misses_total",
		Help:      "Device cache reads that found no live entry",
	}, []string{"cache"})

	cacheRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "device_cache_refreshes_total",
		Help:      "Upstream fetches performed to repopulate a cache",
	}, []string{"cache"})

	inviteAttempts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "invite_attempts_total",
		Help:      "Invite issuance attempts against the upstream API",
	})

	inviteFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hub",
		Name:      "invite_failures_total",
		Help:      "Invite issuances that exhausted the retry budget",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		cacheHits,
		cacheMisses,
		cacheRefreshes,
		inviteAttempts,
		inviteFailures,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		cacheRefreshes:      cacheRefreshes,
		inviteAttempts:      inviteAttempts,
		inviteFailures:      inviteFailures,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncCacheHit records a cache read served without an upstream call.
func (m *Metrics) IncCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncCacheMiss records a cache read that found no live entry.
func (m *Metrics) IncCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncCacheRefresh records an upstream fetch repopulating a cache.
func (m *Metrics) IncCacheRefresh(cache string) {
	if m == nil {
		return
	}
	m.cacheRefreshes.WithLabelValues(cache).Inc()
}

// IncInviteAttempt increments the invite attempt counter.
func (m *Metrics) IncInviteAttempt() {
	if m == nil {
		return
	}
	m.inviteAttempts.Inc()
}

// IncInviteFailure increments the exhausted-retry counter.
func (m *Metrics) IncInviteFailure() {
	if m == nil {
		return
	}
	m.inviteFailures.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
