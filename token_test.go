package authvital

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_Valid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		token  Token
		margin time.Duration
		want   bool
	}{
		{
			name:   "empty token is never valid",
			token:  Token{},
			margin: 0,
			want:   false,
		},
		{
			name:   "expiry far in the future",
			token:  Token{AccessToken: "abc", ExpiresAt: now.Add(time.Hour)},
			margin: time.Minute,
			want:   true,
		},
		{
			name:   "expired token",
			token:  Token{AccessToken: "abc", ExpiresAt: now.Add(-time.Second)},
			margin: 0,
			want:   false,
		},
		{
			name:   "inside the safety margin",
			token:  Token{AccessToken: "abc", ExpiresAt: now.Add(30 * time.Second)},
			margin: time.Minute,
			want:   false,
		},
		{
			name:   "exactly at margin boundary",
			token:  Token{AccessToken: "abc", ExpiresAt: now.Add(time.Minute)},
			margin: time.Minute,
			want:   false,
		},
		{
			name:   "just outside the margin",
			token:  Token{AccessToken: "abc", ExpiresAt: now.Add(time.Minute + time.Second)},
			margin: time.Minute,
			want:   true,
		},
		{
			name:   "no expiry reported",
			token:  Token{AccessToken: "abc"},
			margin: time.Minute,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Valid(now, tt.margin))
		})
	}
}

func TestToken_ValidExpiryScenario(t *testing.T) {
	// Token issued at T=0 with expires_in=3600 and a 60s margin must still
	// be valid at T=3500 and stale at T=3601
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tok := Token{AccessToken: "abc", ExpiresAt: issued.Add(3600 * time.Second)}

	assert.True(t, tok.Valid(issued.Add(3500*time.Second), DefaultExpiryMargin))
	assert.False(t, tok.Valid(issued.Add(3601*time.Second), DefaultExpiryMargin))
}

func TestParseScope(t *testing.T) {
	assert.Nil(t, parseScope(""))
	assert.Equal(t, []string{"read"}, parseScope("read"))
	assert.Equal(t, []string{"read", "write"}, parseScope("read write"))
	assert.Equal(t, []string{"read", "write"}, parseScope("  read   write "))
}
