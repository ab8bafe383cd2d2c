package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/msp-client/pkg/auth"
	"github.com/Sternrassler/msp-client/pkg/cache"
	"github.com/Sternrassler/msp-client/pkg/client"
	"github.com/Sternrassler/msp-client/pkg/config"
	"github.com/Sternrassler/msp-client/pkg/logging"
	"github.com/Sternrassler/msp-client/pkg/metrics"
	"github.com/Sternrassler/msp-client/pkg/msp"
	"github.com/Sternrassler/msp-client/pkg/pagination"
)

// collectTimeout bounds one POST /collect, across all of its pages.
const collectTimeout = 5 * time.Minute

func main() {
	settings, err := config.Load(os.Getenv("MSP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(settings.LoggingConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	var snapshots *cache.Manager
	if settings.RedisURL != "" {
		redisClient, err = newRedisClient(settings.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", settings.RedisURL).Msg("Failed to connect to Redis")
		}
		snapshots = cache.NewManager(redisClient, settings.CacheTTL)
		logger.Info().Str("redis", settings.RedisURL).Dur("ttl", settings.CacheTTL).Msg("Snapshot cache enabled")
	}

	svc, err := msp.NewService(msp.Config{
		Client:     settings.ClientConfig(),
		Aggregator: settings.AggregatorConfig(),
		Snapshots:  snapshots,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MSP service")
	}

	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           newMux(svc, redisClient, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", server.Addr).
		Str("base_url", svc.Client().BaseURL()).
		Int("max_requests", settings.MaxRequests).
		Msg("Starting MSP gateway")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("MSP gateway stopped")
}

// newRedisClient accepts a redis:// URL or a plain host:port address.
func newRedisClient(raw string) (*redis.Client, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw}), nil
}

type collector interface {
	Collect(ctx context.Context, t pagination.Template) (*pagination.Result, error)
}

type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

func newMux(svc collector, redisClient *redis.Client, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	if redisClient != nil {
		mux.HandleFunc("/ready", readyHandler(redisClient))
	} else {
		mux.HandleFunc("/ready", readyHandler(nil))
	}
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/collect", collectHandler(svc, logger))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while Redis is unreachable. Without Redis the
// gateway is always ready.
func readyHandler(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

type collectRequest struct {
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	ItemsKey    string         `json:"itemsKey"`
	Body        map[string]any `json:"body,omitempty"`
	Query       url.Values     `json:"query,omitempty"`
	FilterBy    any            `json:"filterBy,omitempty"`
	Strategy    string         `json:"strategy"`
	PageSize    int            `json:"pageSize,omitempty"`
	CursorParam string         `json:"cursorParam,omitempty"`
}

type collectResponse struct {
	Records  []json.RawMessage `json:"records"`
	Requests int               `json:"requests"`
	Stop     string            `json:"stop"`
	Partial  bool              `json:"partial"`
}

type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

func (req collectRequest) template() (pagination.Template, error) {
	kind, err := pagination.ParseKind(req.Strategy)
	if err != nil {
		return pagination.Template{}, err
	}
	t := pagination.Template{
		Method:      req.Method,
		Path:        req.Path,
		ItemsKey:    req.ItemsKey,
		Query:       req.Query,
		Body:        req.Body,
		FilterBy:    req.FilterBy,
		Kind:        kind,
		PageSize:    req.PageSize,
		CursorParam: req.CursorParam,
	}
	return t, t.Validate()
}

func collectHandler(svc collector, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		var req collectRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		tpl, err := req.template()
		if err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), collectTimeout)
		defer cancel()

		res, err := svc.Collect(ctx, tpl)
		if err != nil {
			status, body := errorStatus(err)
			logger.Warn().Err(err).Str("path", tpl.Path).Int("status", status).Msg("Collect failed")
			writeError(w, status, body)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(collectResponse{
			Records:  res.Records,
			Requests: res.Requests,
			Stop:     string(res.Stop),
			Partial:  res.Partial,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to write response")
		}
	}
}

func errorStatus(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error()}

	var authErr *auth.AuthError
	var apiErr *client.APIError
	var shapeErr *client.ShapeError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, body
	case errors.As(err, &authErr):
		body.UpstreamStatus = authErr.StatusCode
		return http.StatusBadGateway, body
	case errors.As(err, &shapeErr):
		return http.StatusBadGateway, body
	case errors.As(err, &apiErr):
		body.UpstreamStatus = apiErr.StatusCode
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(body)
}
