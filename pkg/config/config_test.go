package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/msp-client/pkg/logging"
	"github.com/Sternrassler/msp-client/pkg/pagination"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("MSP_BASE_URL", "api.example.com")
	t.Setenv("MSP_CLIENT_ID", "client")
	t.Setenv("MSP_CLIENT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "api.example.com", s.Credentials.BaseURL)
	assert.Equal(t, "client", s.Credentials.ClientID)
	assert.Equal(t, "secret", s.Credentials.ClientSecret)
	assert.False(t, s.Credentials.Debug)
	assert.Equal(t, pagination.DefaultMaxRequests, s.MaxRequests)
	assert.Zero(t, s.RateLimit)
	assert.Equal(t, 1, s.RateBurst)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.False(t, s.ReuseToken)
	assert.Empty(t, s.RedisURL)
	assert.Equal(t, 5*time.Minute, s.CacheTTL)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	setCredentials(t)
	t.Setenv("MSP_DEBUG", "true")
	t.Setenv("MSP_MAX_REQUESTS", "20")
	t.Setenv("MSP_RATE_LIMIT", "2.5")
	t.Setenv("MSP_RATE_BURST", "3")
	t.Setenv("MSP_TIMEOUT", "10s")
	t.Setenv("MSP_REUSE_TOKEN", "true")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_PRETTY", "true")

	s, err := Load("")
	require.NoError(t, err)

	assert.True(t, s.Credentials.Debug)
	assert.Equal(t, 20, s.MaxRequests)
	assert.Equal(t, 2.5, s.RateLimit)
	assert.Equal(t, 3, s.RateBurst)
	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.True(t, s.ReuseToken)
	assert.Equal(t, "redis:6379", s.RedisURL)
	assert.Equal(t, time.Minute, s.CacheTTL)
	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, "debug", s.LogLevel)
	assert.True(t, s.LogPretty)

	cc := s.ClientConfig()
	assert.Equal(t, 2.5, cc.RateLimit)
	assert.Equal(t, 3, cc.RateBurst)
	assert.True(t, cc.ReuseToken)
	assert.Equal(t, 10*time.Second, cc.Timeout)

	assert.Equal(t, 20, s.AggregatorConfig().MaxRequests)

	lc := s.LoggingConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.True(t, lc.Pretty)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "msp.yaml")
	content := `msp:
  base_url: https://file.example.com
  client_id: file-client
  client_secret: file-secret
  max_requests: 50
server:
  port: "7070"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	// environment wins over the file
	t.Setenv("MSP_CLIENT_ID", "env-client")

	s, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", s.Credentials.BaseURL)
	assert.Equal(t, "env-client", s.Credentials.ClientID)
	assert.Equal(t, "file-secret", s.Credentials.ClientSecret)
	assert.Equal(t, 50, s.MaxRequests)
	assert.Equal(t, "7070", s.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	setCredentials(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing client secret",
			env:     map[string]string{"MSP_CLIENT_SECRET": ""},
			wantErr: "client secret is required",
		},
		{
			name:    "zero max requests",
			env:     map[string]string{"MSP_MAX_REQUESTS": "0"},
			wantErr: "max_requests must be >= 1",
		},
		{
			name:    "negative rate limit",
			env:     map[string]string{"MSP_RATE_LIMIT": "-1"},
			wantErr: "rate_limit must be >= 0",
		},
		{
			name:    "zero burst",
			env:     map[string]string{"MSP_RATE_BURST": "0"},
			wantErr: "rate_burst must be >= 1",
		},
		{
			name:    "zero timeout",
			env:     map[string]string{"MSP_TIMEOUT": "0s"},
			wantErr: "timeout must be > 0",
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: `unknown log level "verbose"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCredentials(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
