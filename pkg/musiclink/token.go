package musiclink

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// SpotifyTokenURL is the Spotify client-credentials endpoint.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	// SoundCloudTokenURL is the SoundCloud client-credentials endpoint.
	SoundCloudTokenURL = "https://api.soundcloud.com/oauth2/token"
	// DefaultTokenSafetyMargin is subtracted from the advertised token lifetime.
	DefaultTokenSafetyMargin = 60 * time.Second

	tokenFlightKey = "token"
)

// TokenCache obtains client-credentials tokens for one provider and caches them in memory.
// Concurrent callers that miss the cache share a single grant request.
type TokenCache struct {
	provider   Provider
	config     *clientcredentials.Config
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time
	onGrant    func(provider Provider, err error)

	group     singleflight.Group
	mutex     sync.Mutex
	token     string
	expiresAt time.Time
}

// TokenCacheOption customizes a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithClock replaces time.Now, used by tests to control expiry.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		c.now = now
	}
}

// WithSafetyMargin sets how long before the advertised expiry a token is refreshed.
func WithSafetyMargin(margin time.Duration) TokenCacheOption {
	return func(c *TokenCache) {
		c.margin = margin
	}
}

// WithTokenHTTPClient sets the client used for grant requests.
func WithTokenHTTPClient(client *http.Client) TokenCacheOption {
	return func(c *TokenCache) {
		c.httpClient = client
	}
}

// WithGrantHook registers a callback invoked after every grant attempt.
func WithGrantHook(hook func(provider Provider, err error)) TokenCacheOption {
	return func(c *TokenCache) {
		c.onGrant = hook
	}
}

// NewSpotifyTokenCache authenticates with HTTP Basic client_id:client_secret.
func NewSpotifyTokenCache(clientID, clientSecret, tokenURL string, opts ...TokenCacheOption) *TokenCache {
	if tokenURL == "" {
		tokenURL = SpotifyTokenURL
	}
	return NewTokenCache(ProviderSpotify, &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}, opts...)
}

// NewSoundCloudTokenCache sends client_id and client_secret in the form body.
func NewSoundCloudTokenCache(clientID, clientSecret, tokenURL string, opts ...TokenCacheOption) *TokenCache {
	if tokenURL == "" {
		tokenURL = SoundCloudTokenURL
	}
	return NewTokenCache(ProviderSoundCloud, &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}, opts...)
}

// NewTokenCache creates a cache around an arbitrary client-credentials configuration.
func NewTokenCache(provider Provider, config *clientcredentials.Config, opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		provider:   provider,
		config:     config,
		httpClient: newHTTPClient(DefaultHTTPTimeout),
		margin:     DefaultTokenSafetyMargin,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both client id and secret are present.
func (c *TokenCache) Configured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// Token returns a valid access token, fetching a new one when the cached token has expired.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", &ImportError{
			Kind:     KindAuthFailure,
			Provider: c.provider,
			Message:  "client credentials are not configured",
			Err:      ErrMissingCredentials,
		}
	}

	if token, ok := c.cached(); ok {
		return token, nil
	}

	// The grant runs detached from the first caller so its cancellation does not fail the other waiters.
	flight := c.group.DoChan(tokenFlightKey, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-flight:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", upstreamError(0, ctx.Err(), "waiting for %s token", c.provider)
	}
}

// Invalidate drops the cached token so the next call performs a new grant.
func (c *TokenCache) Invalidate() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

func (c *TokenCache) cached() (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, true
	}
	return "", false
}

func (c *TokenCache) fetch(ctx context.Context) (string, error) {
	// A flight that started right after another one finished finds the fresh token here.
	if token, ok := c.cached(); ok {
		return token, nil
	}

	issuedAt := c.now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.config.Token(ctx)
	if c.onGrant != nil {
		c.onGrant(c.provider, err)
	}
	if err != nil {
		return "", &ImportError{
			Kind:     KindAuthFailure,
			Provider: c.provider,
			Message:  "client-credentials grant failed",
			Err:      err,
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.token = tok.AccessToken
	c.expiresAt = issuedAt.Add(tokenLifetime(tok) - c.margin)
	return c.token, nil
}

// tokenLifetime reads expires_in from the raw grant response.
func tokenLifetime(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int64:
		return time.Duration(v) * time.Second
	case string:
		if secs, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		return time.Until(tok.Expiry)
	}
	return 0
}

// bearerTransport authorizes every outbound request with a token from the cache.
type bearerTransport struct {
	tokens *TokenCache
	scheme string
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}

	authorized := req.Clone(req.Context())
	authorized.Header.Set("Authorization", t.scheme+" "+token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(authorized)
}
