package authvital

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fed-stew/authvital/retry"
)

// writeToken responds with a standard token payload
func writeToken(w http.ResponseWriter, accessToken string, expiresIn int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"scope":        "read write",
	})
}

func TestClient_Token_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, []string{"read", "write"}, tok.Scope)
	assert.False(t, tok.ExpiresAt.IsZero())

	// second call is served from the cache
	again, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Token_SendsClientCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify method and headers
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "expected Basic auth")
		assert.Equal(t, "test-client", user)
		assert.Equal(t, "test-secret", pass)

		// Verify form body
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "read write", r.PostForm.Get("scope"))

		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithScopes("read", "write"))

	_, err := client.Token(context.Background())
	require.NoError(t, err)
}

func TestClient_Token_ExpiryMarginScenario(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		name := "abc"
		if n > 1 {
			name = "def"
		}
		writeToken(w, name, 3600)
	}))
	defer server.Close()

	clock := retry.NewMockClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	client := newTestClient(t, server.URL, WithClock(clock))

	// T=0: first fetch
	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	// T=3500: still valid, no network call
	clock.Advance(3500 * time.Second)
	tok, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, int32(1), calls.Load())

	// T=3601: past expiry, a refresh happens
	clock.Advance(101 * time.Second)
	tok, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "def", tok.AccessToken)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Token_ConcurrentSingleRefresh(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// widen the window so every goroutine joins the same flight
		time.Sleep(150 * time.Millisecond)
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	const goroutines = 20
	start := make(chan struct{})
	results := make([]Token, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = client.Token(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i], "goroutine %d", i)
		assert.Equal(t, "abc", results[i].AccessToken, "goroutine %d", i)
	}
	assert.Equal(t, int32(1), calls.Load(), "expected exactly one refresh")
}

func TestClient_Token_ConcurrentFailureShared(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(150 * time.Millisecond)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(0))

	const goroutines = 10
	start := make(chan struct{})
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = client.Token(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		var te *TransientError
		require.ErrorAs(t, errs[i], &te, "goroutine %d", i)
		assert.Equal(t, http.StatusServiceUnavailable, te.Status, "goroutine %d", i)
	}
	assert.Equal(t, int32(1), calls.Load(), "failure should be shared, not repeated")
}

func TestClient_Token_CancelledWaiterDoesNotAbortRefresh(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	var wg sync.WaitGroup
	var errA, errB error
	var tokB Token

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = client.Token(ctxA)
	}()

	time.Sleep(50 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		tokB, errB = client.Token(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	cancelA()
	wg.Wait()

	// the cancelled caller withdrew, the other waiter got the token
	assert.ErrorIs(t, errA, context.Canceled)
	require.NoError(t, errB)
	assert.Equal(t, "abc", tokB.AccessToken)

	// the shared refresh completed once and populated the cache
	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Token_AuthenticationErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":             "invalid_client",
			"error_description": "client authentication failed",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(3))

	_, err := client.Token(context.Background())

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Equal(t, "invalid_client", authErr.Code)
	assert.Equal(t, int32(1), calls.Load(), "authentication failures must not be retried")
}

func TestClient_Token_BadRequestInvalidClient(t *testing.T) {
	// some platforms reject bad credentials with 400 + invalid_client
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "invalid_client"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_client", authErr.Code)
}

func TestClient_Token_BadRequestOtherError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "unsupported_grant_type"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadRequest, clientErr.Status)
}

func TestClient_Token_TransientRetriesThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	policy := retry.NewExponential(100*time.Millisecond, time.Second, 0, 1)
	clock := retry.NewMockClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	client := newTestClient(t, server.URL,
		WithMaxRetries(3),
		WithRetryPolicy(policy),
		WithClock(clock),
	)

	tok, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, int32(3), calls.Load())

	// delays follow the configured backoff
	assert.Equal(t, []time.Duration{policy.Delay(1), policy.Delay(2)}, clock.Sleeps())
}

func TestClient_Token_TransientRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	clock := retry.NewMockClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	client := newTestClient(t, server.URL, WithMaxRetries(2), WithClock(clock))

	_, err := client.Token(context.Background())

	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.Status)
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestClient_Token_MalformedResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token response")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Token_MissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"expires_in": 3600})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access_token")
}

func TestClient_SetCredential_InvalidatesCachedToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		user, _, _ := r.BasicAuth()
		if n > 1 {
			assert.Equal(t, "rotated-client", user)
		} else {
			assert.Equal(t, "test-client", user)
		}
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, client.SetCredential(Credential{ClientID: "rotated-client", ClientSecret: "rotated-secret"}))
	assert.Equal(t, Credential{ClientID: "rotated-client", ClientSecret: "rotated-secret"}, client.Credential())

	// the cached token is gone, the next call refreshes with the new credential
	_, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_SetCredential_SameValueKeepsCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())
	require.NoError(t, err)

	require.NoError(t, client.SetCredential(Credential{ClientID: "test-client", ClientSecret: "test-secret"}))

	_, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "unchanged credential must keep the cache")
}

func TestClient_InvalidateToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeToken(w, "abc", 3600)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Token(context.Background())
	require.NoError(t, err)

	client.InvalidateToken()

	_, err = client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
