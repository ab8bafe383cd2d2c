// Package auth exchanges MSP client credentials for short-lived bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenPath is the fixed token endpoint of the MSP API.
const TokenPath = "/msp/auth/v1/token"

// Credentials identify one MSP API tenant. They are owned by the caller and
// never persisted here.
type Credentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Debug enables request/response shape traces in the executor.
	Debug bool
}

// Validate reports the first missing credential field.
func (c Credentials) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("base url is required")
	case strings.TrimSpace(c.ClientID) == "":
		return fmt.Errorf("client id is required")
	case strings.TrimSpace(c.ClientSecret) == "":
		return fmt.Errorf("client secret is required")
	}
	return nil
}

// AccessToken is a bearer token. Expiry is not tracked.
type AccessToken struct {
	Value string
}

// TokenFetcher yields a bearer token for one outbound request.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (AccessToken, error)
}

// Authenticator performs the client-credentials grant. Every FetchToken call
// is a new grant request.
type Authenticator struct {
	config     clientcredentials.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAuthenticator creates an Authenticator for the given credentials.
// A nil httpClient falls back to a client with a 30s timeout.
func NewAuthenticator(creds Credentials, httpClient *http.Client, logger zerolog.Logger) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Authenticator{
		config: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     NormalizeBaseURL(creds.BaseURL) + TokenPath,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchToken requests a new access token.
func (a *Authenticator) FetchToken(ctx context.Context) (AccessToken, error) {
	tok, err := a.config.Token(a.oauthContext(ctx))
	if err != nil {
		return AccessToken{}, a.wrap(ctx, err)
	}
	return toAccessToken(tok)
}

// Session returns a TokenFetcher bound to ctx that reuses one token until it
// expires. It must not outlive the aggregation it was created for.
func (a *Authenticator) Session(ctx context.Context) TokenFetcher {
	return &session{
		ctx:    ctx,
		source: a.config.TokenSource(a.oauthContext(ctx)),
		wrap:   a.wrap,
	}
}

func (a *Authenticator) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *Authenticator) wrap(ctx context.Context, err error) error {
	authErr := &AuthError{Message: "token request failed", Err: err}

	// oauth2 flattens transport errors, keep cancellation matchable.
	if ctxErr := ctx.Err(); ctxErr != nil {
		authErr.Message = "token request cancelled"
		authErr.Err = fmt.Errorf("%w: %v", ctxErr, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		authErr.StatusCode = retrieveErr.Response.StatusCode
		if retrieveErr.ErrorCode != "" {
			authErr.Message = retrieveErr.ErrorCode
		}
	}

	a.logger.Error().
		Err(err).
		Int("status", authErr.StatusCode).
		Str("token_url", a.config.TokenURL).
		Msg("Token request failed")

	return authErr
}

type session struct {
	ctx    context.Context
	source oauth2.TokenSource
	wrap   func(context.Context, error) error
}

func (s *session) FetchToken(ctx context.Context) (AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return AccessToken{}, &AuthError{Message: "token request cancelled", Err: err}
	}
	tok, err := s.source.Token()
	if err != nil {
		return AccessToken{}, s.wrap(s.ctx, err)
	}
	return toAccessToken(tok)
}

func toAccessToken(tok *oauth2.Token) (AccessToken, error) {
	if tok == nil || tok.AccessToken == "" {
		return AccessToken{}, &AuthError{Message: "token response missing access_token"}
	}
	return AccessToken{Value: tok.AccessToken}, nil
}

// NormalizeBaseURL trims whitespace and trailing slashes and defaults the
// scheme to https.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base
}
