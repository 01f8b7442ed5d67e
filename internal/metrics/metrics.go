// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinerank_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	VoteActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinerank_vote_actions_total",
			Help: "Vote and rating actions by kind and resulting state",
		},
		[]string{"kind", "result"}, // kind: like, dislike, rating
	)

	LeaderboardComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinerank_leaderboard_compute_duration_seconds",
			Help:    "Time spent loading a snapshot and ranking it",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	LeaderboardCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinerank_leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result",
		},
		[]string{"result"}, // hit, miss, stale, error
	)

	MetadataLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinerank_metadata_lookups_total",
			Help: "Metadata provider lookups by outcome",
		},
		[]string{"outcome"}, // ok, not_found, unavailable, canceled, error
	)
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
