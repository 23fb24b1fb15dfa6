// Package metrics defines and registers the Prometheus collectors of the
// portal client. It is the single source of truth for metric names, labels,
// and help strings.
//
// Collectors register with the default registry on import (promauto).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheFetchesTotal counts completed fetches per cache key.
// Labels:
//   - key: the cache key (e.g. "auth-me", "news:3")
//   - result: "ok", "error", or "stale" (result discarded, a newer generation exists)
var CacheFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_fetches_total",
		Help:      "Total number of cache cell fetches, by key and result.",
	},
	[]string{"key", "result"},
)

// CacheFetchDuration measures fetch latency per cache key.
var CacheFetchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cache_fetch_duration_seconds",
		Help:      "Duration of cache cell fetches, from generation start to settle.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"key"},
)

// CacheGeneration tracks the latest issued generation per cache key.
var CacheGeneration = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_generation",
		Help:      "Latest request generation issued for each cache key.",
	},
	[]string{"key"},
)

// ── Action metrics ────────────────────────────────────────────────────────────

// ActionsTotal counts mutating actions.
// Labels:
//   - action: e.g. "link_external_account", "logout"
//   - result: "ok", "invalid", "write_failed", "refresh_failed"
var ActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Total number of mutating actions, by action and result.",
	},
	[]string{"action", "result"},
)

// ── Transport metrics ─────────────────────────────────────────────────────────

// HTTPRequestsTotal counts outgoing requests.
// Label status is the numeric status code, or "transport_error".
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of outgoing API requests, by method and status.",
	},
	[]string{"method", "status"},
)
