package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	Commands           *prometheus.CounterVec
	CommandDuration    *prometheus.HistogramVec
	CountCacheHits     prometheus.Counter
	CountCacheMisses   prometheus.Counter
	CountInvalidations prometheus.Counter
}

// Command outcome labels.
const (
	statusOK    = "ok"
	statusError = "error"
)

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vql_commands_total",
		Help: "Total VQL commands executed, by command and outcome",
	}, []string{"cmd", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vql_command_duration_seconds",
		Help:    "Time to execute a VQL command; streaming commands stop the clock when their stream is ready",
		Buckets: prometheus.DefBuckets,
	}, []string{"cmd"})

	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vql_count_cache_hits_total",
		Help: "COUNT commands answered from the count cache",
	})

	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vql_count_cache_misses_total",
		Help: "COUNT commands that ran a query",
	})

	invalidations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vql_count_cache_invalidations_total",
		Help: "Times the count cache was purged after a mutation",
	})

	reg.MustRegister(commands, duration, hits, misses, invalidations)

	return &Metrics{
		Commands:           commands,
		CommandDuration:    duration,
		CountCacheHits:     hits,
		CountCacheMisses:   misses,
		CountInvalidations: invalidations,
	}
}
