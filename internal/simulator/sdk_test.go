package simulator

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/fed-stew/authvital"
	"github.com/fed-stew/authvital/authvader"
	"github.com/fed-stew/authvital/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the published SDK against the simulator end to end,
// covering the same flows an integrator would exercise locally.

func TestSDKTokenFlow(t *testing.T) {
	ts := newTestServer(t)
	id, secret := registerClient(t, ts, "billing-service", []string{"read", "write"})

	client, err := authvital.New(
		authvital.WithHost(ts.URL),
		authvital.WithClientID(id),
		authvital.WithClientSecret(secret),
		authvital.WithScopes("read", "write"),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	tok, err := client.Token(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, []string{"read", "write"}, tok.Scope)

	// The platform reports the token active
	info, err := client.Introspect(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, id, info.ClientID)
	assert.Equal(t, []string{"read", "write"}, info.Scope)

	// Revoking invalidates it on both sides
	require.NoError(t, client.Revoke(ctx, tok.AccessToken))

	info, err = client.Introspect(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.False(t, info.Active)

	// A fresh token is minted afterwards
	tok2, err := client.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, tok.AccessToken, tok2.AccessToken)
}

func TestSDKRejectedCredentials(t *testing.T) {
	ts := newTestServer(t)
	id, _ := registerClient(t, ts, "billing-service", nil)

	client, err := authvital.New(
		authvital.WithHost(ts.URL),
		authvital.WithClientID(id),
		authvital.WithClientSecret("wrong-secret"),
	)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Token(context.Background())

	var authErr *authvital.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Equal(t, "invalid_client", authErr.Code)
}

func TestSDKRetriesInjectedFailures(t *testing.T) {
	ts := newTestServer(t)
	id, secret := registerClient(t, ts, "flaky-service", nil)

	resp := adminRequest(t, ts, http.MethodPost, "/admin/clients/"+id+"/failures", []byte(`{"count": 2}`))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	client, err := authvital.New(
		authvital.WithHost(ts.URL),
		authvital.WithClientID(id),
		authvital.WithClientSecret(secret),
		authvital.WithMaxRetries(2),
		authvital.WithRetryPolicy(retry.Fixed(time.Millisecond)),
	)
	require.NoError(t, err)
	defer client.Close()

	// Two injected failures, then success on the third attempt
	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
}

func TestSDKSurfacesInjectedFailures(t *testing.T) {
	ts := newTestServer(t)
	id, secret := registerClient(t, ts, "flaky-service", nil)

	resp := adminRequest(t, ts, http.MethodPost, "/admin/clients/"+id+"/failures", []byte(`{"count": 1}`))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	client, err := authvital.New(
		authvital.WithHost(ts.URL),
		authvital.WithClientID(id),
		authvital.WithClientSecret(secret),
		authvital.WithMaxRetries(0),
	)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Token(context.Background())

	var transientErr *authvital.TransientError
	require.ErrorAs(t, err, &transientErr)
	assert.Equal(t, http.StatusServiceUnavailable, transientErr.Status)
	assert.Equal(t, 1, transientErr.Attempts)
}

func TestAuthVaderSDK(t *testing.T) {
	ts := newTestServer(t)
	id, secret := registerClient(t, ts, "vader-service", []string{"read"})

	client, err := authvader.New(
		authvader.WithHost(ts.URL),
		authvader.WithClientID(id),
		authvader.WithClientSecret(secret),
	)
	require.NoError(t, err)
	defer client.Close()

	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, []string{"read"}, tok.Scope)
}
