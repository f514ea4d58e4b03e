// Package webex talks to the Webex REST API: access token refresh for a
// service app and license usage listing.
package webex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
)

const (
	// DefaultAPIBase is the public Webex REST API root.
	DefaultAPIBase = "https://webexapis.com/v1"

	// DefaultTimeout bounds token refresh and API calls.
	DefaultTimeout = 30 * time.Second

	// expiryMargin is how long before expiry a cached token stops being served.
	expiryMargin = 60 * time.Second

	defaultExpiresIn = 3600
	minTokenLength   = 50
)

// TokenSource provides bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token, typically a personal access token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", &CredentialError{Reason: "no access token configured"}
	}
	return tok, nil
}

// TokenConfig configures a TokenCache.
type TokenConfig struct {
	APIBase      string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration

	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// TokenCache serves a service-app access token, refreshing it through the
// refresh_token grant when it is absent or about to expire. Concurrent
// callers share a single refresh.
type TokenCache struct {
	cfg    TokenConfig
	client *resty.Client
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

var _ TokenSource = (*TokenCache)(nil)

// NewTokenCache creates a token cache. Nothing is fetched until Token is called.
func NewTokenCache(cfg TokenConfig, logger *slog.Logger) *TokenCache {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &TokenCache{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    now,
	}
}

// Token returns a cached access token or refreshes it.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("access_token", func() (any, error) {
		// Another caller may have refreshed while we waited.
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		// Shared with joined callers; only the client timeout bounds it.
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ExpiresAt returns the expiry of the cached token, or zero when none is cached.
func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Before(c.expiresAt.Add(-expiryMargin)) {
		return "", false
	}
	return c.token, true
}

type tokenResponse struct {
	AccessToken  *string `json:"access_token"`
	ExpiresIn    *int64  `json:"expires_in"`
	RefreshToken *string `json:"refresh_token"`
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" || c.cfg.RefreshToken == "" {
		return "", &CredentialError{Reason: "missing client id, client secret or refresh token"}
	}

	issuedAt := c.now()
	tok, expiresIn, err := c.requestToken(ctx)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		c.logger.Error("webex token refresh failed", "error", err)
		return "", err
	}
	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()

	expiresAt := issuedAt.Add(time.Duration(expiresIn) * time.Second)
	c.mu.Lock()
	c.token = tok
	c.expiresAt = expiresAt
	c.mu.Unlock()

	c.logger.Info("webex access token refreshed", "expires_at", expiresAt.UTC())
	return tok, nil
}

func (c *TokenCache) requestToken(ctx context.Context) (string, int64, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"refresh_token": c.cfg.RefreshToken,
		}).
		Post("/access_token")
	if err != nil {
		return "", 0, &CredentialError{Reason: "token refresh request failed", Err: err}
	}
	if resp.StatusCode() >= 300 {
		return "", 0, &CredentialError{
			Reason:     "token refresh rejected",
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String()),
		}
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", 0, &CredentialError{Reason: "malformed token response", Err: err}
	}
	if body.AccessToken == nil {
		return "", 0, &CredentialError{Reason: "token endpoint did not return access_token"}
	}

	tok := strings.TrimSpace(*body.AccessToken)
	if tok == "" || strings.EqualFold(tok, "none") || len(tok) < minTokenLength {
		return "", 0, &CredentialError{Reason: fmt.Sprintf("received invalid access_token (len=%d)", len(tok))}
	}

	if body.RefreshToken != nil && *body.RefreshToken != c.cfg.RefreshToken {
		metrics.RefreshTokenRotationsTotal.Inc()
		c.logger.Warn("webex returned a new refresh token; update webex.refresh_token to avoid future failures")
	}

	expiresIn := int64(defaultExpiresIn)
	if body.ExpiresIn != nil && *body.ExpiresIn > 0 {
		expiresIn = *body.ExpiresIn
	}
	return tok, expiresIn, nil
}
