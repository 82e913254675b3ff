package querycache

import "github.com/prometheus/client_golang/prometheus"

var (
	hits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "querycache_hits_total",
		Help: "Fetches served from a valid cache entry.",
	})
	misses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "querycache_misses_total",
		Help: "Fetches that issued a network request.",
	})
	pendingJoins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "querycache_pending_joins_total",
		Help: "Fetches that waited on an in-flight request for the same key.",
	})
	entriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "querycache_entries",
		Help: "Current number of cached entries.",
	})
)

func init() {
	prometheus.MustRegister(hits, misses, pendingJoins, entriesGauge)
}
