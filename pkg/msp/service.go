// Package msp is the entry point for callers that want every record of an
// MSP API listing. It wires the authenticator, the request executor and the
// aggregator, and optionally serves repeated aggregations from Redis.
package msp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/msp-client/pkg/cache"
	"github.com/Sternrassler/msp-client/pkg/client"
	"github.com/Sternrassler/msp-client/pkg/logging"
	"github.com/Sternrassler/msp-client/pkg/pagination"
)

// Config holds the service configuration.
type Config struct {
	Client     client.Config
	Aggregator pagination.Config

	// Snapshots enables the result cache. Nil disables it.
	Snapshots *cache.Manager

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Service aggregates MSP API listings.
type Service struct {
	client    *client.Client
	aggConfig pagination.Config
	snapshots *cache.Manager
	tenant    string
	logger    zerolog.Logger
}

// NewService validates cfg and builds the client stack.
func NewService(cfg Config) (*Service, error) {
	logger := logging.NewLogger("msp-service")
	if cfg.Logger != nil {
		logger = *cfg.Logger
		if cfg.Client.Logger == nil {
			cfg.Client.Logger = cfg.Logger
		}
		if cfg.Aggregator.Logger == nil {
			cfg.Aggregator.Logger = cfg.Logger
		}
	}

	c, err := client.New(cfg.Client)
	if err != nil {
		return nil, err
	}

	return &Service{
		client:    c,
		aggConfig: cfg.Aggregator,
		snapshots: cfg.Snapshots,
		tenant:    c.BaseURL() + "|" + cfg.Client.Credentials.ClientID,
		logger:    logger,
	}, nil
}

// Client returns the underlying request executor.
func (s *Service) Client() *client.Client {
	return s.client
}

// Collect runs one aggregation for t. A complete result may come from the
// snapshot cache; partial results are never cached.
func (s *Service) Collect(ctx context.Context, t pagination.Template) (*pagination.Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	key := s.cacheKey(t)
	if s.snapshots != nil {
		snap, err := s.snapshots.Get(ctx, key)
		switch {
		case err == nil:
			s.logger.Debug().
				Str("path", t.Path).
				Int("records", len(snap.Records)).
				Msg("Aggregation served from snapshot")
			return &pagination.Result{
				Records:  snap.Records,
				Requests: snap.Requests,
				Stop:     pagination.StopReason(snap.Stop),
			}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn().Err(err).Str("path", t.Path).Msg("Snapshot lookup failed")
		}
	}

	agg := pagination.NewAggregator(s.client.Session(ctx), s.aggConfig)
	res, err := agg.CollectAll(ctx, t)
	if err != nil {
		return nil, err
	}

	if s.snapshots != nil && !res.Partial {
		snap := &cache.Snapshot{
			Records:  res.Records,
			Requests: res.Requests,
			Stop:     string(res.Stop),
		}
		if err := s.snapshots.Set(ctx, key, snap); err != nil {
			s.logger.Warn().Err(err).Str("path", t.Path).Msg("Snapshot store failed")
		}
	}

	return res, nil
}

// CollectAll returns every record of the listing at path. A safety stop is
// not an error; the records gathered until then are returned.
func (s *Service) CollectAll(
	ctx context.Context,
	method, path, itemsKey string,
	body map[string]any,
	query url.Values,
	kind pagination.Kind,
	pageSize int,
) ([]json.RawMessage, error) {
	res, err := s.Collect(ctx, pagination.Template{
		Method:   method,
		Path:     path,
		ItemsKey: itemsKey,
		Body:     body,
		Query:    query,
		Kind:     kind,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func (s *Service) cacheKey(t pagination.Template) cache.CacheKey {
	method := t.Method
	if method == "" {
		method = http.MethodGet
	}

	// Only the query cursor dialect sends the parameter name.
	var cursorParam string
	if t.Kind == pagination.KindCursorQuery {
		cursorParam = t.CursorParam
		if cursorParam == "" {
			cursorParam = pagination.DefaultCursorParam
		}
	}

	return cache.CacheKey{
		Tenant:      s.tenant,
		Method:      method,
		Path:        t.Path,
		ItemsKey:    t.ItemsKey,
		Strategy:    t.Kind.String(),
		PageSize:    t.PageSize,
		CursorParam: cursorParam,
		Query:       t.Query,
		Body:        t.Body,
		FilterBy:    t.FilterBy,
	}
}
