package idgen

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// ID prefixes for different models
const (
	PrefixClient = "avc_"
	PrefixToken  = "tok_"
)

// NewClient generates a new OAuth client identifier with avc_ prefix
func NewClient() string {
	return PrefixClient + uuid.New().String()
}

// NewToken generates a new token record ID with tok_ prefix
func NewToken() string {
	return PrefixToken + uuid.New().String()
}

// New generates a generic UUID without prefix (for internal use only)
func New() string {
	return uuid.New().String()
}

// NewSecret generates a random client secret
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
