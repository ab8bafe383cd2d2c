// Package client provides the single-request executor for the MSP management
// API: one authenticated call, one decoded envelope, one normalized error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/msp-client/pkg/auth"
	"github.com/Sternrassler/msp-client/pkg/logging"
	"github.com/Sternrassler/msp-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for MSP request execution.
var (
	mspRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msp_requests_total",
		Help: "Total MSP API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	mspRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "msp_request_duration_seconds",
		Help:    "MSP API request duration in seconds by endpoint, token fetch included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	mspErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msp_errors_total",
		Help: "Total MSP API errors by class",
	}, []string{"class"})
)

// Request is one MSP API call. A nil or empty Body on GET sends no body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// Client executes single authenticated MSP API requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	auth       *auth.Authenticator
	tokens     auth.TokenFetcher
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Credentials for the client-credentials grant (REQUIRED)
	Credentials auth.Credentials

	// HTTPClient is used for token and API calls. Defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration

	// Pacing, 0 disables
	RateLimit float64
	RateBurst int

	// ReuseToken lets Session hand out a client that keeps one token for the
	// whole aggregation instead of a new grant per request.
	ReuseToken bool

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration that matches the MSP API's own
// behaviour: no pacing and a fresh token for every request.
func DefaultConfig(creds auth.Credentials) Config {
	return Config{
		Credentials: creds,
		Timeout:     30 * time.Second,
		RateBurst:   1,
	}
}

// New creates a new MSP client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	logger := logging.NewLogger("msp-client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	authenticator := auth.NewAuthenticator(cfg.Credentials, httpClient, logger)

	return &Client{
		httpClient: httpClient,
		baseURL:    auth.NormalizeBaseURL(cfg.Credentials.BaseURL),
		auth:       authenticator,
		tokens:     authenticator,
		limiter:    ratelimit.New(cfg.RateLimit, cfg.RateBurst, logger),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Session returns the client to use for one aggregation. With ReuseToken the
// returned copy shares one token source bound to ctx; otherwise c itself.
func (c *Client) Session(ctx context.Context) *Client {
	if !c.config.ReuseToken {
		return c
	}
	return c.WithTokens(c.auth.Session(ctx))
}

// WithTokens returns a shallow copy of c that takes tokens from tokens.
func (c *Client) WithTokens(tokens auth.TokenFetcher) *Client {
	cp := *c
	cp.tokens = tokens
	return &cp
}

// Debug reports whether reporting-endpoint traces are enabled.
func (c *Client) Debug() bool {
	return c.config.Credentials.Debug
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Execute performs one authenticated request and decodes the JSON envelope.
// Failures are *APIError, or *auth.AuthError when no token could be fetched.
func (c *Client) Execute(ctx context.Context, req Request) (Envelope, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	endpoint := req.Path

	startTime := time.Now()
	defer func() {
		mspRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.fail(&APIError{
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Message:    "request not sent",
			Err:        err,
		}, "network_error")
	}

	token, err := c.tokens.FetchToken(ctx)
	if err != nil {
		mspErrorsTotal.WithLabelValues(string(ErrorClassAuth)).Inc()
		mspRequestsTotal.WithLabelValues(endpoint, "auth_error").Inc()
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, method, req, token)
	if err != nil {
		return nil, c.fail(&APIError{
			Endpoint:   endpoint,
			ErrorClass: ErrorClassClient,
			Message:    "build request",
			Err:        err,
		}, "invalid_request")
	}

	trace := c.Debug() && isReportingPath(endpoint)
	if trace {
		traceRequest(c.logger, method, req)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing MSP request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(&APIError{
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}, "network_error")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(&APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}, "network_error")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    errorMessage(body, resp.Status),
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("MSP request error")
		return nil, c.fail(apiErr, strconv.Itoa(resp.StatusCode))
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, c.fail(&APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid JSON response",
			Err:        err,
		}, "decode_error")
	}

	if trace {
		traceResponse(c.logger, method, endpoint, resp.StatusCode, env)
	}

	mspRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return env, nil
}

func (c *Client) newRequest(ctx context.Context, method string, req Request, token auth.AccessToken) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if method != http.MethodGet || len(req.Body) > 0 {
		payload := req.Body
		if payload == nil {
			payload = map[string]any{}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+token.Value)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func (c *Client) fail(err *APIError, status string) error {
	mspErrorsTotal.WithLabelValues(string(err.ErrorClass)).Inc()
	mspRequestsTotal.WithLabelValues(err.Endpoint, status).Inc()
	if err.ErrorClass == ErrorClassNetwork {
		c.logger.Error().Err(err.Err).Str("endpoint", err.Endpoint).Msg("MSP request failed")
	}
	return err
}

// errorMessage picks the most specific message from an MSP error body.
func errorMessage(body []byte, fallback string) string {
	var payload map[string]any
	if json.Unmarshal(body, &payload) == nil {
		for _, key := range []string{"message", "error_description", "error", "detail"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}
