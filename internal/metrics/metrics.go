// Package metrics holds the Prometheus collectors for the gateway client
// and the development API server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nejat"

// Recorder records client and server metrics. A nil *Recorder discards everything.
type Recorder struct {
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	gatewayRetries  *prometheus.CounterVec
	pagesLoaded     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)

	return &Recorder{
		gatewayRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Total API requests issued by the gateway",
			},
			[]string{"operation", "status"},
		),
		gatewayLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Latency of API requests issued by the gateway",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		gatewayRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_retries_total",
				Help:      "Total retried lookup requests",
			},
			[]string{"operation"},
		),
		pagesLoaded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pager_pages_total",
				Help:      "Event list pages fetched by outcome",
			},
			[]string{"result"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests served",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "route"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Event cache lookups by result",
			},
			[]string{"cache", "result"},
		),
	}
}

// TrackGatewayRequest records one API call. status is the HTTP status, or
// "error" when no response arrived.
func (r *Recorder) TrackGatewayRequest(operation, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.gatewayRequests.WithLabelValues(operation, status).Inc()
	r.gatewayLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// TrackGatewayRetry records one retry of a lookup
func (r *Recorder) TrackGatewayRetry(operation string) {
	if r == nil {
		return
	}
	r.gatewayRetries.WithLabelValues(operation).Inc()
}

// TrackPage records a page fetch outcome: ok, error or superseded
func (r *Recorder) TrackPage(result string) {
	if r == nil {
		return
	}
	r.pagesLoaded.WithLabelValues(result).Inc()
}

// TrackHTTPRequest records one served request
func (r *Recorder) TrackHTTPRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackCache records a cache hit or miss
func (r *Recorder) TrackCache(cache string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, result).Inc()
}
