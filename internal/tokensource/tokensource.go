// Package tokensource supplies bearer tokens for upstream API calls.
package tokensource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// cloudPlatformScope is the OAuth scope Vertex AI requires.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Source yields a bearer token valid for the next request.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token, for development setups and tests.
type Static string

func (s Static) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("access token is empty")
	}
	return string(s), nil
}

// RefreshFunc mints a new token and reports when it expires. A zero expiry
// means the token does not expire.
type RefreshFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// Cached wraps a RefreshFunc with a single-token cache. The cached token is
// reused until it comes within Margin of its expiry; the mutex makes
// concurrent callers share one refresh instead of racing.
type Cached struct {
	Refresh RefreshFunc
	Margin  time.Duration

	mu     sync.Mutex
	token  string
	expiry time.Time
}

const defaultMargin = 2 * time.Minute

func (c *Cached) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	margin := c.Margin
	if margin <= 0 {
		margin = defaultMargin
	}
	if c.token != "" && (c.expiry.IsZero() || time.Now().Add(margin).Before(c.expiry)) {
		return c.token, nil
	}

	token, expiry, err := c.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}
	c.token = token
	c.expiry = expiry
	return token, nil
}

// FromOAuth2 adapts an oauth2.TokenSource, keeping the expiry watermark so
// tokens refresh ahead of their deadline.
func FromOAuth2(ts oauth2.TokenSource) Source {
	return &Cached{
		Refresh: func(_ context.Context) (string, time.Time, error) {
			tok, err := ts.Token()
			if err != nil {
				return "", time.Time{}, err
			}
			return tok.AccessToken, tok.Expiry, nil
		},
	}
}

// GoogleDefault builds a Source backed by Application Default Credentials,
// the normal way to authenticate against Vertex AI outside of tests.
func GoogleDefault(ctx context.Context) (Source, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to locate default credentials: %w", err)
	}
	return FromOAuth2(creds.TokenSource), nil
}
