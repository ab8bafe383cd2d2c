// Package ratelimit paces outbound MSP API requests on the client side.
//
// The MSP API publishes no error-budget headers, so pacing is a plain token
// bucket. It never retries and never rejects: Wait blocks until a request may
// be sent or the context ends.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	mspThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msp_rate_limit_throttles_total",
		Help: "Total number of requests delayed by client-side pacing",
	})

	mspThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msp_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a pacing token",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Limiter gates requests with a token bucket. A nil *Limiter allows everything.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a Limiter allowing rps requests per second with the given burst.
// rps <= 0 disables pacing and returns nil.
func New(rps float64, burst int, logger zerolog.Logger) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if waited := time.Since(start); waited > time.Millisecond {
		mspThrottledTotal.Inc()
		mspThrottleWaitSeconds.Observe(waited.Seconds())
		l.logger.Debug().Dur("waited", waited).Msg("Request paced by rate limiter")
	}
	return nil
}

// Limit returns the configured requests per second, 0 when disabled.
func (l *Limiter) Limit() float64 {
	if l == nil {
		return 0
	}
	return float64(l.limiter.Limit())
}
