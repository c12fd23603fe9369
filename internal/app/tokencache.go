package app

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenCache holds one access token and its expiry for the
// conferencing integration. It is owned by the client that needs it
// and injected through its constructor, never a package variable.
// The mutex spans check-and-refresh, so a caller can never observe a
// token that went stale between the freshness check and its use.
type TokenCache struct {
	mu     sync.Mutex
	source oauth2.TokenSource
	token  *oauth2.Token
	skew   time.Duration
	nowFn  func() time.Time
}

func NewTokenCache(source oauth2.TokenSource) *TokenCache {
	return &TokenCache{
		source: source,
		skew:   30 * time.Second,
		nowFn:  time.Now,
	}
}

// Token returns the cached access token, refreshing through the
// source when the cached one is absent or within the expiry skew.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.AccessToken != "" {
		if c.token.Expiry.IsZero() || c.nowFn().Before(c.token.Expiry.Add(-c.skew)) {
			return c.token.AccessToken, nil
		}
	}

	tok, err := c.source.Token()
	if err != nil {
		return "", errors.Wrap(err, "failed to refresh conferencing token")
	}
	c.token = tok
	return tok.AccessToken, nil
}

// Set primes the cache, mainly for tests and token hand-off.
func (c *TokenCache) Set(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// NewConferenceTokenSource builds the client-credentials source for
// the conferencing API from configuration.
func NewConferenceTokenSource(ctx context.Context, cfg ConferenceConfig) (oauth2.TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
		return nil, &ConfigurationError{
			Key:  "CONFERENCE_CLIENT_ID/CONFERENCE_CLIENT_SECRET/CONFERENCE_TOKEN_URL",
			Hint: "set the conferencing OAuth client credentials; podcast bookings will proceed without links until then",
		}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return cc.TokenSource(ctx), nil
}

// ErrorTokenSource always fails with err. It lets an unconfigured
// conferencing integration surface its configuration error at the
// point of use instead of panicking at startup.
func ErrorTokenSource(err error) oauth2.TokenSource {
	return errTokenSource{err: err}
}

type errTokenSource struct{ err error }

func (s errTokenSource) Token() (*oauth2.Token, error) { return nil, s.err }
