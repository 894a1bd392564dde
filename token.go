package authvital

import (
	"strings"
	"time"
)

// DefaultExpiryMargin is subtracted from a token's expiry when judging
// validity, so tokens are refreshed before they actually lapse.
const DefaultExpiryMargin = 60 * time.Second

// Token is a short-lived bearer credential issued by the platform's token
// endpoint. A refresh produces a new Token; existing values are never
// mutated.
type Token struct {
	AccessToken string    // opaque bearer value
	TokenType   string    // typically "Bearer"
	ExpiresAt   time.Time // zero when the platform reported no expiry
	Scope       []string  // scopes granted with the token
}

// Valid reports whether the token is usable at now, refusing tokens within
// margin of their expiry. Tokens without an expiry never go stale.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// parseScope splits the space-separated scope list of a token response
func parseScope(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
