// Package config loads MSP client and gateway settings from the environment
// and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/msp-client/pkg/auth"
	"github.com/Sternrassler/msp-client/pkg/client"
	"github.com/Sternrassler/msp-client/pkg/logging"
	"github.com/Sternrassler/msp-client/pkg/pagination"
)

// Config keys, mapped to environment variables in envBindings.
const (
	KeyBaseURL      = "msp.base_url"
	KeyClientID     = "msp.client_id"
	KeyClientSecret = "msp.client_secret"
	KeyDebug        = "msp.debug"
	KeyMaxRequests  = "msp.max_requests"
	KeyRateLimit    = "msp.rate_limit"
	KeyRateBurst    = "msp.rate_burst"
	KeyTimeout      = "msp.timeout"
	KeyReuseToken   = "msp.reuse_token"
	KeyRedisURL     = "redis.url"
	KeyCacheTTL     = "redis.cache_ttl"
	KeyPort         = "server.port"
	KeyLogLevel     = "log.level"
	KeyLogPretty    = "log.pretty"
)

var envBindings = map[string]string{
	KeyBaseURL:      "MSP_BASE_URL",
	KeyClientID:     "MSP_CLIENT_ID",
	KeyClientSecret: "MSP_CLIENT_SECRET",
	KeyDebug:        "MSP_DEBUG",
	KeyMaxRequests:  "MSP_MAX_REQUESTS",
	KeyRateLimit:    "MSP_RATE_LIMIT",
	KeyRateBurst:    "MSP_RATE_BURST",
	KeyTimeout:      "MSP_TIMEOUT",
	KeyReuseToken:   "MSP_REUSE_TOKEN",
	KeyRedisURL:     "REDIS_URL",
	KeyCacheTTL:     "CACHE_TTL",
	KeyPort:         "PORT",
	KeyLogLevel:     "LOG_LEVEL",
	KeyLogPretty:    "LOG_PRETTY",
}

// Settings is the resolved configuration of one process.
type Settings struct {
	Credentials auth.Credentials

	MaxRequests int
	RateLimit   float64
	RateBurst   int
	Timeout     time.Duration
	ReuseToken  bool

	// RedisURL enables the snapshot cache when set.
	RedisURL string
	CacheTTL time.Duration

	Port      string
	LogLevel  string
	LogPretty bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyMaxRequests, pagination.DefaultMaxRequests)
	v.SetDefault(KeyRateLimit, 0.0)
	v.SetDefault(KeyRateBurst, 1)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyReuseToken, false)
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyCacheTTL, 5*time.Minute)
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyLogLevel, string(logging.LevelInfo))
	v.SetDefault(KeyLogPretty, false)
}

// New returns a viper instance with defaults and environment bindings.
// A non-empty file is read as well; environment values take precedence.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	return v, nil
}

// Load resolves and validates Settings from the environment and file.
func Load(file string) (Settings, error) {
	v, err := New(file)
	if err != nil {
		return Settings{}, err
	}
	return FromViper(v)
}

// FromViper resolves Settings from an already populated viper instance.
func FromViper(v *viper.Viper) (Settings, error) {
	s := Settings{
		Credentials: auth.Credentials{
			BaseURL:      strings.TrimSpace(v.GetString(KeyBaseURL)),
			ClientID:     strings.TrimSpace(v.GetString(KeyClientID)),
			ClientSecret: v.GetString(KeyClientSecret),
			Debug:        v.GetBool(KeyDebug),
		},
		MaxRequests: v.GetInt(KeyMaxRequests),
		RateLimit:   v.GetFloat64(KeyRateLimit),
		RateBurst:   v.GetInt(KeyRateBurst),
		Timeout:     v.GetDuration(KeyTimeout),
		ReuseToken:  v.GetBool(KeyReuseToken),
		RedisURL:    strings.TrimSpace(v.GetString(KeyRedisURL)),
		CacheTTL:    v.GetDuration(KeyCacheTTL),
		Port:        v.GetString(KeyPort),
		LogLevel:    strings.ToLower(v.GetString(KeyLogLevel)),
		LogPretty:   v.GetBool(KeyLogPretty),
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if err := s.Credentials.Validate(); err != nil {
		return err
	}
	if s.MaxRequests < 1 {
		return fmt.Errorf("max_requests must be >= 1 (got %d)", s.MaxRequests)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0 (got %v)", s.RateLimit)
	}
	if s.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be >= 1 (got %d)", s.RateBurst)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", s.Timeout)
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be >= 0 (got %s)", s.CacheTTL)
	}
	switch logging.LogLevel(s.LogLevel) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("unknown log level %q", s.LogLevel)
	}
	return nil
}

// ClientConfig returns the client configuration for these settings.
func (s Settings) ClientConfig() client.Config {
	cfg := client.DefaultConfig(s.Credentials)
	cfg.Timeout = s.Timeout
	cfg.RateLimit = s.RateLimit
	cfg.RateBurst = s.RateBurst
	cfg.ReuseToken = s.ReuseToken
	return cfg
}

// AggregatorConfig returns the aggregator configuration for these settings.
func (s Settings) AggregatorConfig() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.MaxRequests = s.MaxRequests
	return cfg
}

// LoggingConfig returns the logger configuration for these settings.
func (s Settings) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(s.LogLevel)
	cfg.Pretty = s.LogPretty
	return cfg
}
