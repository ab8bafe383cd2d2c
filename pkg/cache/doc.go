// Package cache stores snapshots of completed MSP aggregations in Redis.
//
// A snapshot is the flat record list of one finished CollectAll call, keyed by
// everything that determines it: tenant, method, path, items key, strategy,
// page size, query and body. Snapshots are opt-in and used by callers that
// serve the same "fetch all" repeatedly; a single aggregation never reads
// them, and partial results are never stored.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, 5*time.Minute)
//
//	key := cache.CacheKey{
//		Tenant:   "https://api.example.com|client-id",
//		Method:   "GET",
//		Path:     "/v1/customers",
//		ItemsKey: "items",
//		Strategy: "cursor_query",
//	}
//
//	snap, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// run the aggregation, then manager.Set(ctx, key, snapshot)
//	}
//
// # Metrics
//
//   - msp_snapshot_hits_total - Snapshot hits
//   - msp_snapshot_misses_total - Snapshot misses
//   - msp_snapshot_bytes_written_total - Bytes written to Redis
//   - msp_snapshot_errors_total{operation} - Redis operation errors
package cache
