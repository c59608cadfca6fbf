package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marine_votes_total",
		Help: "Validation votes submitted, by species verdict and whether the vote was new.",
	}, []string{"verdict", "created"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marine_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds, by endpoint and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})

	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marine_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marine_cache_hits_total",
		Help: "Total Redis cache hits.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marine_cache_misses_total",
		Help: "Total Redis cache misses.",
	})

	ConsensusDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marine_consensus_evaluation_duration_seconds",
		Help:    "Duration of consensus re-evaluations including the vote load and write.",
		Buckets: prometheus.DefBuckets,
	})

	ItemsValidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marine_items_validated_total",
		Help: "Media items that transitioned to community-validated.",
	})

	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marine_classifications_total",
		Help: "AI classification task outcomes, by status.",
	}, []string{"status"})

	RewardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marine_rewards_total",
		Help: "Reward events, by outcome.",
	}, []string{"outcome"})

	WorkerBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marine_worker_batch_items",
		Help:    "Items re-evaluated per background worker pass.",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
	}, []string{"worker"})
)

// RegisterPoolGauges exposes live pgxpool statistics. Call once at startup.
func RegisterPoolGauges(pool *pgxpool.Pool) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "marine_db_connection_pool_active",
		Help: "Number of active database connections.",
	}, func() float64 {
		return float64(pool.Stat().AcquiredConns())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "marine_db_connection_pool_idle",
		Help: "Number of idle database connections.",
	}, func() float64 {
		return float64(pool.Stat().IdleConns())
	})
}
