package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the gateway-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "offline_gateway",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "offline_gateway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by domain and outcome.",
		},
		[]string{"domain", "outcome"},
	)

	offlineFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "mediator",
			Name:      "offline_fallbacks_total",
			Help:      "Responses served from fallbacks because the network was unavailable.",
		},
		[]string{"kind"},
	)

	syncReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "sync",
			Name:      "replays_total",
			Help:      "Mutation replay attempts by outcome.",
		},
		[]string{"outcome"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "offline_gateway",
			Subsystem: "sync",
			Name:      "queue_depth",
			Help:      "Pending mutations awaiting replay.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		cacheLookups,
		offlineFallbacks,
		syncReplays,
		queueDepth,
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncrementInFlight bumps the in-flight gauge.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight drops the in-flight gauge.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheHit counts a lookup that was served from cache.
func RecordCacheHit(domain string) { cacheLookups.WithLabelValues(domain, "hit").Inc() }

// RecordCacheMiss counts a lookup that fell through to the network.
func RecordCacheMiss(domain string) { cacheLookups.WithLabelValues(domain, "miss").Inc() }

// RecordOfflineFallback counts a fallback response by kind
// (document, synthetic, cache).
func RecordOfflineFallback(kind string) { offlineFallbacks.WithLabelValues(kind).Inc() }

// RecordReplay counts a replay attempt outcome
// (success, failure, abandoned).
func RecordReplay(outcome string) { syncReplays.WithLabelValues(outcome).Inc() }

// SetQueueDepth publishes the current pending queue length.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }
