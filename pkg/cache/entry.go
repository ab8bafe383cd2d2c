package cache

import (
	"encoding/json"
	"time"
)

// Snapshot is the stored outcome of one completed aggregation.
type Snapshot struct {
	Records  []json.RawMessage `json:"records"`
	Requests int               `json:"requests"`
	Stop     string            `json:"stop"`

	CachedAt time.Time `json:"cached_at"`
	Expires  time.Time `json:"expires"`
}

// IsExpired returns true if the snapshot has expired.
func (s *Snapshot) IsExpired() bool {
	return time.Now().After(s.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (s *Snapshot) TTL() time.Duration {
	ttl := time.Until(s.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
