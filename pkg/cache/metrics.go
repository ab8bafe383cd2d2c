package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotHits tracks snapshot hits
	SnapshotHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msp_snapshot_hits_total",
			Help: "Total number of aggregation snapshot hits",
		},
	)

	// SnapshotMisses tracks snapshot misses
	SnapshotMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msp_snapshot_misses_total",
			Help: "Total number of aggregation snapshot misses",
		},
	)

	// SnapshotBytesWritten tracks bytes written to Redis
	SnapshotBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msp_snapshot_bytes_written_total",
			Help: "Total bytes of aggregation snapshots written to Redis",
		},
	)

	// SnapshotErrors tracks Redis operation errors
	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msp_snapshot_errors_total",
			Help: "Total number of snapshot operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
