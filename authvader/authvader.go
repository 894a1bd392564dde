// Package authvader provides the official Go SDK for the AuthVader Identity
// Platform.
//
// AuthVader speaks the same OAuth2 client-credentials protocol as AuthVital;
// this package configures the shared client with AuthVader's host and
// endpoint paths. All client behavior, options and error types come from
// the authvital package.
//
//	client, err := authvader.New(
//		authvader.WithClientID("avd_example"),
//		authvader.WithClientSecret(os.Getenv("AUTHVADER_CLIENT_SECRET")),
//	)
package authvader

import (
	"github.com/fed-stew/authvital"
)

// DefaultHost is the AuthVader API host
const DefaultHost = "https://api.authvader.com"

// Client is an AuthVader API client.
type Client = authvital.Client

// Option configures the AuthVader client.
type Option = authvital.Option

// DefaultEndpoints returns the endpoint paths of the AuthVader platform
func DefaultEndpoints() authvital.Endpoints {
	return authvital.Endpoints{
		Token:      "/oauth/token",
		Introspect: "/oauth/introspect",
		Revoke:     "/oauth/revoke",
	}
}

// New creates a new AuthVader client. Options given by the caller override
// the AuthVader defaults.
func New(opts ...Option) (*Client, error) {
	base := []Option{
		authvital.WithHost(DefaultHost),
		authvital.WithEndpoints(DefaultEndpoints()),
	}
	return authvital.New(append(base, opts...)...)
}

// WithHost sets the AuthVader host URL.
func WithHost(host string) Option {
	return authvital.WithHost(host)
}

// WithClientID sets the OAuth client ID.
func WithClientID(clientID string) Option {
	return authvital.WithClientID(clientID)
}

// WithClientSecret sets the OAuth client secret.
func WithClientSecret(clientSecret string) Option {
	return authvital.WithClientSecret(clientSecret)
}
