package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL applies when a Manager is created without a TTL.
const DefaultTTL = 5 * time.Minute

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored snapshot is corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles snapshot storage with a Redis backend.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a new snapshot manager. ttl <= 0 means DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// TTL returns the lifetime given to snapshots without explicit expiry.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get retrieves a snapshot by key.
// Returns ErrCacheMiss if the key doesn't exist or the snapshot is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*Snapshot, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			SnapshotMisses.Inc()
			return nil, ErrCacheMiss
		}
		SnapshotErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		SnapshotErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if snap.IsExpired() {
		_ = m.Delete(ctx, key)
		SnapshotMisses.Inc()
		return nil, ErrCacheMiss
	}

	SnapshotHits.Inc()
	return &snap, nil
}

// Set stores a snapshot. A zero Expires is filled in from the manager TTL;
// an already expired snapshot is not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	if snap.CachedAt.IsZero() {
		snap.CachedAt = time.Now()
	}
	if snap.Expires.IsZero() {
		snap.Expires = snap.CachedAt.Add(m.ttl)
	}

	ttl := snap.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		SnapshotErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		SnapshotErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	SnapshotBytesWritten.Add(float64(len(data)))
	return nil
}

// Delete removes a snapshot.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		SnapshotErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}
