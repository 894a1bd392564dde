package issuer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueAndValidate(t *testing.T) {
	iss := New("test-signing-key", time.Hour)

	value, expiresAt, err := iss.Issue("avc_one", "read write", "tok_one")
	require.NoError(t, err)
	require.NotEmpty(t, value)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := iss.Validate(value)
	require.NoError(t, err)
	assert.Equal(t, "avc_one", claims.ClientID)
	assert.Equal(t, "avc_one", claims.Subject)
	assert.Equal(t, "read write", claims.Scope)
	assert.Equal(t, "tok_one", claims.ID)
	assert.Equal(t, "authvital-sim", claims.Issuer)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestIssuer_Validate_WrongKey(t *testing.T) {
	iss := New("test-signing-key", time.Hour)
	other := New("different-key", time.Hour)

	value, _, err := iss.Issue("avc_one", "", "tok_one")
	require.NoError(t, err)

	_, err = other.Validate(value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Validate_Garbage(t *testing.T) {
	iss := New("test-signing-key", time.Hour)

	_, err := iss.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Validate_Expired(t *testing.T) {
	iss := New("test-signing-key", -time.Minute)

	value, _, err := iss.Issue("avc_one", "", "tok_one")
	require.NoError(t, err)

	_, err = iss.Validate(value)
	assert.Error(t, err)
}
