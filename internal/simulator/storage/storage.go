// Package storage defines persistence for the simulator's clients and issued tokens.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrInvalidClient   = errors.New("client id, name and secret hash are required")
	ErrInvalidToken    = errors.New("token id, client id and value are required")
	ErrInvalidFailures = errors.New("failure count must not be negative")
)

// Client is a registered OAuth2 client
type Client struct {
	ID         string    // Client identifier (avc_ prefix)
	Name       string    // Human-readable name
	SecretHash string    // bcrypt hash of the client secret
	Scopes     []string  // Scopes the client may be granted
	FailNext   int       // Remaining token requests to fail with 503
	CreatedAt  time.Time // Creation timestamp
	UpdatedAt  time.Time // Last update timestamp
}

// Validate checks that required client fields are set
func (c *Client) Validate() error {
	if c.ID == "" || c.Name == "" || c.SecretHash == "" {
		return ErrInvalidClient
	}
	return nil
}

// Token is an access token issued to a client
type Token struct {
	ID        string    // Token record ID (tok_ prefix)
	ClientID  string    // Issuing client
	Value     string    // The signed token string
	Scope     string    // Space-separated granted scopes
	ExpiresAt time.Time // Expiry timestamp
	Revoked   bool      // Set by the revocation endpoint
	CreatedAt time.Time // Issue timestamp
}

// Validate checks that required token fields are set
func (t *Token) Validate() error {
	if t.ID == "" || t.ClientID == "" || t.Value == "" {
		return ErrInvalidToken
	}
	return nil
}

// Store defines the interface for data persistence
type Store interface {
	// Clients
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context) ([]*Client, error)
	DeleteClient(ctx context.Context, id string) error

	// Failure injection
	SetFailures(ctx context.Context, clientID string, count int) error
	ConsumeFailure(ctx context.Context, clientID string) (bool, error)

	// Tokens
	SaveToken(ctx context.Context, token *Token) error
	GetToken(ctx context.Context, value string) (*Token, error)
	RevokeToken(ctx context.Context, value string) error
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
}
