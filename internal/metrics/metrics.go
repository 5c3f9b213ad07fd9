// Package metrics exposes Prometheus counters for the stores and caches.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts store fetches by store, operation and result kind.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_fetch_total",
			Help: "Store fetches by store, operation and outcome",
		},
		[]string{"store", "op", "kind"},
	)

	// ReadingsMerged counts readings merged into in-memory aggregates.
	ReadingsMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_readings_merged_total",
			Help: "Readings merged into aggregates",
		},
		[]string{"store", "mode"},
	)

	// ChartCacheLookups counts chart-option cache hits and misses.
	ChartCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_chart_cache_lookups_total",
			Help: "Chart option cache lookups by result",
		},
		[]string{"result"},
	)

	// SnapshotOps counts snapshot saves and loads.
	SnapshotOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floodwatch_snapshot_ops_total",
			Help: "Snapshot persistence operations by name, op and result",
		},
		[]string{"name", "op", "result"},
	)
)

// ObserveFetch records one fetch outcome.
func ObserveFetch(store, op, kind string) {
	FetchTotal.WithLabelValues(store, op, kind).Inc()
}

// ObserveMerged records n merged readings.
func ObserveMerged(store, mode string, n int) {
	if n <= 0 {
		return
	}
	ReadingsMerged.WithLabelValues(store, mode).Add(float64(n))
}
