package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sync orchestration metrics
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of per-account sync runs",
		},
		[]string{"outcome"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sellerhub",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of one account sync run in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	activeAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sellerhub",
			Subsystem: "sync",
			Name:      "active_accounts",
			Help:      "Number of accounts in the active client set",
		},
	)

	// Marketplace client metrics
	marketplaceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Subsystem: "marketplace",
			Name:      "requests_total",
			Help:      "Total number of outbound marketplace requests",
		},
		[]string{"method", "outcome"},
	)

	marketplaceCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Subsystem: "marketplace",
			Name:      "cache_total",
			Help:      "Marketplace response cache hits and misses",
		},
		[]string{"result"},
	)

	// Token lifecycle metrics
	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sellerhub",
			Subsystem: "tokens",
			Name:      "refresh_total",
			Help:      "Total number of token refresh attempts",
		},
		[]string{"outcome"},
	)
)

// RecordSyncRun records the outcome of one account sync run
func RecordSyncRun(outcome string, duration time.Duration) {
	syncRunsTotal.WithLabelValues(outcome).Inc()
	syncDuration.Observe(duration.Seconds())
}

// SetActiveAccounts updates the active client set gauge
func SetActiveAccounts(n int) {
	activeAccounts.Set(float64(n))
}

// RecordMarketplaceRequest records one outbound request attempt outcome
func RecordMarketplaceRequest(method, outcome string) {
	marketplaceRequestsTotal.WithLabelValues(method, outcome).Inc()
}

// RecordCache records a cache hit or miss
func RecordCache(result string) {
	marketplaceCacheTotal.WithLabelValues(result).Inc()
}

// RecordTokenRefresh records a refresh attempt outcome
func RecordTokenRefresh(outcome string) {
	tokenRefreshTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
