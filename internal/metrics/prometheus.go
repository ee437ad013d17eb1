package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "areamap_embedding_duration_seconds",
			Help:    "Time spent computing an embedding",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"trigger"},
	)

	ReembedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areamap_reembed_total",
			Help: "Total embedding computations by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)

	InvalidSeedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "areamap_invalid_seed_total",
			Help: "Seed submissions rejected as non-integer",
		},
	)

	EmbeddingStress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "areamap_embedding_stress",
			Help: "Stress of the current embedding",
		},
	)

	ActiveSeed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "areamap_active_seed",
			Help: "Seed of the current embedding",
		},
	)

	TableRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "areamap_table_rows",
			Help: "Rows in the current score table",
		},
	)

	DegenerateRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "areamap_degenerate_rows_total",
			Help: "Rows with undefined normalized vectors seen while embedding",
		},
	)

	DegenerateAxes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areamap_degenerate_axes_total",
			Help: "Embedding axes collapsed to the midpoint",
		},
		[]string{"axis"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areamap_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areamap_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areamap_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "areamap_circuit_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "areamap_websocket_clients",
			Help: "Open websocket connections",
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingDuration,
			ReembedTotal,
			InvalidSeedTotal,
			EmbeddingStress,
			ActiveSeed,
			TableRows,
			DegenerateRows,
			DegenerateAxes,
			CacheHits,
			CacheMisses,
			RateLimitedTotal,
			CircuitState,
			WebSocketClients,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
