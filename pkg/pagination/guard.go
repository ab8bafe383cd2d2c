package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var mspSafetyStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "msp_safety_stops_total",
	Help: "Total aggregations stopped early by the loop guard, by reason",
}, []string{"reason"})

// StopReason tells why an aggregation ended. StopNone means continue.
type StopReason string

const (
	StopNone           StopReason = ""
	StopComplete       StopReason = "complete"
	StopRequestCeiling StopReason = "request_ceiling"
	StopRepeatedCursor StopReason = "repeated_cursor"
	StopStalledOffset  StopReason = "stalled_offset"
)

// Partial reports whether the stop left records on the server.
func (r StopReason) Partial() bool {
	switch r {
	case StopRequestCeiling, StopRepeatedCursor, StopStalledOffset:
		return true
	default:
		return false
	}
}

// Guard enforces termination of one aggregation. It is owned by a single
// CollectAll call and must not be shared.
type Guard struct {
	maxRequests int
	requests    int
	seen        map[string]struct{}
	lastShort   int
	logger      zerolog.Logger
}

// NewGuard creates a Guard allowing at most maxRequests requests.
// maxRequests <= 0 means DefaultMaxRequests.
func NewGuard(maxRequests int, logger zerolog.Logger) *Guard {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	return &Guard{
		maxRequests: maxRequests,
		seen:        make(map[string]struct{}),
		logger:      logger,
	}
}

// Begin accounts for the initial request.
func (g *Guard) Begin() {
	g.requests = 1
}

// Requests returns the number of requests accounted for so far.
func (g *Guard) Requests() int {
	return g.requests
}

// MaxRequests returns the ceiling.
func (g *Guard) MaxRequests() int {
	return g.maxRequests
}

// CheckCursor decides whether a request with cursor may be issued. On
// StopNone the cursor is recorded and the request counted.
func (g *Guard) CheckCursor(cursor string) StopReason {
	if cursor == "" {
		return StopComplete
	}
	if g.requests+1 > g.maxRequests {
		return g.stop(StopRequestCeiling)
	}
	if _, dup := g.seen[cursor]; dup {
		return g.stop(StopRepeatedCursor)
	}

	g.seen[cursor] = struct{}{}
	g.requests++
	return StopNone
}

// CheckOffset decides whether another offset page may be requested after a
// page of count items. A short page normally completes the aggregation.
// The stall rule only applies to callers that keep paging after a short page:
// a second short page of the same size stops with StopStalledOffset. Within
// Aggregator.CollectAll the first short page already ends the loop, so the
// stall rule never fires there.
func (g *Guard) CheckOffset(count, pageSize int) StopReason {
	if count == 0 {
		return StopComplete
	}
	if count < pageSize {
		if count == g.lastShort {
			return g.stop(StopStalledOffset)
		}
		g.lastShort = count
		return StopComplete
	}
	if g.requests+1 > g.maxRequests {
		return g.stop(StopRequestCeiling)
	}

	g.requests++
	return StopNone
}

func (g *Guard) stop(reason StopReason) StopReason {
	mspSafetyStopsTotal.WithLabelValues(string(reason)).Inc()
	g.logger.Warn().
		Str("stop_reason", string(reason)).
		Int("requests", g.requests).
		Int("max_requests", g.maxRequests).
		Msg("Aggregation stopped by loop guard, returning partial result")
	return reason
}
