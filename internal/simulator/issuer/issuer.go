// Package issuer mints and validates the signed access tokens the simulator hands out.
package issuer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims represents the JWT claims carried by issued access tokens
type Claims struct {
	Scope    string `json:"scope,omitempty"` // Space-separated granted scopes
	ClientID string `json:"client_id"`       // Client the token was issued to
	jwt.RegisteredClaims
}

// Issuer handles access token creation and validation
type Issuer struct {
	secretKey []byte
	ttl       time.Duration
}

// New creates a new token issuer
func New(secretKey string, ttl time.Duration) *Issuer {
	return &Issuer{
		secretKey: []byte(secretKey),
		ttl:       ttl,
	}
}

// TTL returns the lifetime applied to issued tokens
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a new signed access token for a client
func (i *Issuer) Issue(clientID, scope, tokenID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Scope:    scope,
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   clientID,
			Issuer:    "authvital-sim",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate validates a token string and returns the claims
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredToken
	}

	return claims, nil
}
