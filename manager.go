package authvital

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fed-stew/authvital/retry"
)

// tokenManager caches the access token and coalesces concurrent refreshes so
// at most one token request is in flight per client.
type tokenManager struct {
	store      *credentialStore
	httpClient *http.Client
	tokenURL   string
	scopes     []string
	userAgent  string

	clock      retry.Clock
	policy     retry.Policy
	maxRetries int
	timeout    time.Duration
	margin     time.Duration

	logger *slog.Logger

	mu    sync.RWMutex
	token Token

	group singleflight.Group
}

// Token returns the cached token while it is valid, otherwise refreshes it.
// Concurrent callers share a single refresh and each receive its outcome. A
// caller that cancels its context stops waiting, but the shared refresh runs
// to completion for the remaining waiters.
func (m *tokenManager) Token(ctx context.Context) (Token, error) {
	m.mu.RLock()
	tok := m.token
	m.mu.RUnlock()
	if tok.Valid(m.clock.Now(), m.margin) {
		return tok, nil
	}

	ch := m.group.DoChan("token", func() (interface{}, error) {
		// Re-check under the flight: another refresh may have landed
		// between the fast-path check and joining the group
		m.mu.RLock()
		cur := m.token
		m.mu.RUnlock()
		if cur.Valid(m.clock.Now(), m.margin) {
			return cur, nil
		}
		// Detach from the initiating caller so its cancellation cannot
		// abort a refresh other waiters depend on
		tok, err := m.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

// Invalidate discards the cached token, forcing the next Token call to
// refresh
func (m *tokenManager) Invalidate() {
	m.mu.Lock()
	m.token = Token{}
	m.mu.Unlock()
}

// current returns the cached token without validity checks
func (m *tokenManager) current() Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// refresh performs the client-credentials grant, retrying transient
// failures per the policy. Authentication rejections are fatal and returned
// without retry. On success the new token replaces the cached one.
func (m *tokenManager) refresh(ctx context.Context) (Token, error) {
	cred := m.store.Credential()
	if err := cred.Validate(); err != nil {
		return Token{}, err
	}

	m.logger.Debug("refreshing access token", "token_url", m.tokenURL)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := m.policy.Delay(attempt)
			m.logger.Debug("retrying token refresh", "attempt", attempt, "delay", delay)
			if err := m.clock.Sleep(ctx, delay); err != nil {
				return Token{}, err
			}
		}

		tok, err := m.requestToken(ctx, cred)
		if err == nil {
			m.mu.Lock()
			m.token = tok
			m.mu.Unlock()
			m.logger.Debug("access token refreshed", "expires_at", tok.ExpiresAt, "scope", tok.Scope)
			return tok, nil
		}

		var te *TransientError
		if !errors.As(err, &te) {
			return Token{}, err
		}
		if attempt >= m.maxRetries {
			te.Attempts = attempt + 1
			return Token{}, te
		}
		m.logger.Warn("token refresh failed, will retry", "attempt", attempt+1, "error", err)
	}
}

// requestToken performs one POST to the token endpoint and classifies the
// outcome into the SDK error taxonomy
func (m *tokenManager) requestToken(ctx context.Context, cred Credential) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(m.scopes) > 0 {
		form.Set("scope", strings.Join(m.scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create token request: %w", err)
	}
	// Client credentials travel as Basic auth, form-encoded per RFC 6749 §2.3.1
	req.SetBasicAuth(url.QueryEscape(cred.ClientID), url.QueryEscape(cred.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Token{}, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &TransientError{Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// parsed below
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Token{}, &AuthenticationError{Status: resp.StatusCode, Code: oauthErrorCode(body), Body: snippet(body)}
	case resp.StatusCode >= 500:
		return Token{}, &TransientError{Status: resp.StatusCode, Body: snippet(body)}
	default:
		// invalid_client may arrive as a 400 per RFC 6749 §5.2
		if code := oauthErrorCode(body); code == "invalid_client" || code == "unauthorized_client" {
			return Token{}, &AuthenticationError{Status: resp.StatusCode, Code: code, Body: snippet(body)}
		}
		return Token{}, &ClientError{Status: resp.StatusCode, Body: snippet(body)}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("token response contains no access_token")
	}

	tok := Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		Scope:       parseScope(tr.Scope),
	}
	if tr.ExpiresIn > 0 {
		tok.ExpiresAt = m.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}
