package authvital

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fed-stew/authvital/retry"
)

// Option configures the AuthVital client.
type Option func(*Client)

// Endpoints holds the platform's OAuth2 endpoint paths, resolved against the
// client host.
type Endpoints struct {
	Token      string
	Introspect string
	Revoke     string
}

// DefaultEndpoints returns the endpoint paths of the AuthVital platform
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Token:      "/oauth2/token",
		Introspect: "/oauth2/introspect",
		Revoke:     "/oauth2/revoke",
	}
}

// WithHost sets the AuthVital host URL.
func WithHost(host string) Option {
	return func(c *Client) {
		c.rawHost = host
	}
}

// WithClientID sets the OAuth client ID.
func WithClientID(clientID string) Option {
	return func(c *Client) {
		c.cred.ClientID = clientID
	}
}

// WithClientSecret sets the OAuth client secret.
func WithClientSecret(clientSecret string) Option {
	return func(c *Client) {
		c.cred.ClientSecret = clientSecret
	}
}

// WithCredential sets both halves of the client credential at once.
func WithCredential(cred Credential) Option {
	return func(c *Client) {
		c.cred = cred
	}
}

// WithTimeout bounds every network call made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxRetries bounds how many additional attempts may follow a transient
// failure.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryPolicy overrides the backoff policy used for transient retries.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock retry.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithHTTPClient supplies a custom HTTP client. The caller keeps ownership:
// Close will not release its connections, and the client's own timeout
// settings apply on top of the per-call bound.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger enables structured logging through the given logger. Without
// it the client is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithScopes requests the given scopes when fetching tokens.
func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.scopes = scopes
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithExpiryMargin sets how long before its actual expiry a token is already
// treated as expired.
func WithExpiryMargin(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.margin = d
		}
	}
}

// WithEndpoints overrides the OAuth2 endpoint paths. Platform wrappers such
// as the authvader package use this.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}
