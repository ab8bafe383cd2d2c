package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/msp-client/pkg/client"
	"github.com/Sternrassler/msp-client/pkg/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for aggregations.
var (
	mspAggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msp_aggregations_total",
		Help: "Total aggregations by strategy and outcome (complete, partial, error)",
	}, []string{"strategy", "outcome"})

	mspAggregationRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "msp_aggregation_requests",
		Help:    "Page requests issued per aggregation by strategy",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	}, []string{"strategy"})
)

// Executor performs one page request. *client.Client implements it.
type Executor interface {
	Execute(ctx context.Context, req client.Request) (client.Envelope, error)
}

// Config holds aggregator configuration.
type Config struct {
	// MaxRequests caps page requests per aggregation (default 100).
	MaxRequests int

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{MaxRequests: DefaultMaxRequests}
}

// Result is the outcome of a successful aggregation.
type Result struct {
	Records  []json.RawMessage
	Requests int
	Stop     StopReason

	// Partial is set when the loop guard stopped before the server
	// signalled the end of data.
	Partial bool
}

// Aggregator drives a strategy to completion. It holds no per-aggregation
// state, so one Aggregator may run concurrent CollectAll calls.
type Aggregator struct {
	exec   Executor
	config Config
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator issuing requests through exec.
func NewAggregator(exec Executor, cfg Config) *Aggregator {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}

	logger := logging.NewLogger("msp-aggregator")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Aggregator{
		exec:   exec,
		config: cfg,
		logger: logger,
	}
}

// CollectAll fetches every page described by t, sequentially, and returns
// the records in request order. The first request or shape error aborts the
// aggregation and nothing gathered so far is returned.
func (a *Aggregator) CollectAll(ctx context.Context, t Template) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	strategy, err := StrategyFor(t.Kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := logging.ForAggregation(a.logger, uuid.NewString(), t.Kind.String(), t.Path)
	guard := NewGuard(a.config.MaxRequests, logger)

	req := strategy.Initial(t)
	guard.Begin()

	records := make([]json.RawMessage, 0)
	for number := 1; ; number++ {
		if err := ctx.Err(); err != nil {
			return nil, a.abort(logger, t.Kind, number-1, fmt.Errorf("aggregation cancelled: %w", err))
		}

		env, err := a.exec.Execute(ctx, req)
		if err != nil {
			return nil, a.abort(logger, t.Kind, number, err)
		}

		items, err := env.Items(t.ItemsKey)
		if err != nil {
			var shapeErr *client.ShapeError
			if errors.As(err, &shapeErr) {
				shapeErr.Endpoint = t.Path
			}
			return nil, a.abort(logger, t.Kind, number, err)
		}
		records = append(records, items...)

		logger.Debug().
			Int("page", number).
			Int("items", len(items)).
			Int("total", len(records)).
			Msg("Page fetched")

		next, stop := strategy.Next(t, Page{Number: number, Envelope: env, Items: items}, guard)
		if stop != StopNone {
			res := &Result{
				Records:  records,
				Requests: number,
				Stop:     stop,
				Partial:  stop.Partial(),
			}
			a.finish(logger, t.Kind, res, time.Since(start))
			return res, nil
		}
		req = next
	}
}

func (a *Aggregator) finish(logger zerolog.Logger, kind Kind, res *Result, took time.Duration) {
	outcome := "complete"
	if res.Partial {
		outcome = "partial"
	}
	mspAggregationsTotal.WithLabelValues(kind.String(), outcome).Inc()
	mspAggregationRequests.WithLabelValues(kind.String()).Observe(float64(res.Requests))

	logger.Info().
		Int("requests", res.Requests).
		Int("records", len(res.Records)).
		Str("stop_reason", string(res.Stop)).
		Dur("duration", took).
		Msg("Aggregation finished")
}

func (a *Aggregator) abort(logger zerolog.Logger, kind Kind, requests int, err error) error {
	mspAggregationsTotal.WithLabelValues(kind.String(), "error").Inc()
	mspAggregationRequests.WithLabelValues(kind.String()).Observe(float64(requests))

	logger.Error().
		Err(err).
		Int("requests", requests).
		Msg("Aggregation aborted, discarding gathered records")
	return err
}
