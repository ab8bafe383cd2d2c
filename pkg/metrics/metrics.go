// Package metrics exposes the Prometheus metrics of the MSP client.
// All metrics are defined in their respective packages (client, pagination,
// ratelimit, cache) to maintain modularity and avoid circular dependencies.
//
// This package provides the HTTP handler and the reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the MSP client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - msp_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - msp_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - msp_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode, auth)
//
// Aggregation Metrics (pkg/pagination):
//   - msp_aggregations_total{strategy, outcome} (Counter): Finished aggregations (complete, partial, error)
//   - msp_aggregation_requests{strategy} (Histogram): Page requests per aggregation
//   - msp_safety_stops_total{reason} (Counter): Loop guard stops (request_ceiling, repeated_cursor, stalled_offset)
//
// Pacing Metrics (pkg/ratelimit):
//   - msp_rate_limit_throttles_total (Counter): Requests that had to wait for the limiter
//   - msp_rate_limit_wait_seconds (Histogram): Time spent waiting for the limiter
//
// Snapshot Metrics (pkg/cache):
//   - msp_snapshot_hits_total (Counter): Aggregations served from Redis
//   - msp_snapshot_misses_total (Counter): Snapshot misses
//   - msp_snapshot_bytes_written_total (Counter): Snapshot bytes written
//   - msp_snapshot_errors_total{operation} (Counter): Snapshot operation errors
//
// Example Prometheus Queries:
//
//   # Partial aggregation rate
//   sum(rate(msp_aggregations_total{outcome="partial"}[5m])) /
//   sum(rate(msp_aggregations_total[5m]))
//
//   # Safety stops by reason
//   sum by (reason) (rate(msp_safety_stops_total[5m]))
//
//   # Request Error Rate
//   rate(msp_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(msp_request_duration_seconds_bucket[5m]))
