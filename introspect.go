package authvital

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Introspection is the platform's answer about a token's state (RFC 7662).
type Introspection struct {
	Active    bool
	Scope     []string
	ClientID  string
	TokenType string
	ExpiresAt time.Time // zero when the platform omits exp
}

// Introspect asks the platform whether token is currently active. The call
// authenticates with the client credential, not a bearer token, so it works
// for tokens the client no longer holds.
func (c *Client) Introspect(ctx context.Context, token string) (*Introspection, error) {
	form := url.Values{}
	form.Set("token", token)

	body, err := c.postForm(ctx, c.endpoints.Introspect, form)
	if err != nil {
		return nil, err
	}

	var ir struct {
		Active    bool   `json:"active"`
		Scope     string `json:"scope"`
		ClientID  string `json:"client_id"`
		TokenType string `json:"token_type"`
		Exp       int64  `json:"exp"`
	}
	if err := json.Unmarshal(body, &ir); err != nil {
		return nil, fmt.Errorf("failed to parse introspection response: %w", err)
	}

	out := &Introspection{
		Active:    ir.Active,
		Scope:     parseScope(ir.Scope),
		ClientID:  ir.ClientID,
		TokenType: ir.TokenType,
	}
	if ir.Exp > 0 {
		out.ExpiresAt = time.Unix(ir.Exp, 0)
	}
	return out, nil
}

// Revoke invalidates token on the platform (RFC 7009). When the revoked
// value is the cached access token, the local cache is dropped as well.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("token", token)

	if _, err := c.postForm(ctx, c.endpoints.Revoke, form); err != nil {
		return err
	}
	if c.tokens.current().AccessToken == token {
		c.tokens.Invalidate()
	}
	return nil
}

// postForm sends a credential-authenticated form POST to an OAuth2 endpoint,
// retrying transient failures per the policy. Introspection and revocation
// are safe to repeat.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	endpoint := c.host.JoinPath(path).String()
	cred := c.store.Credential()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, c.policy.Delay(attempt)); err != nil {
				return nil, err
			}
		}

		body, err := c.postFormOnce(ctx, endpoint, cred, form)
		if err == nil {
			return body, nil
		}

		var te *TransientError
		if !errors.As(err, &te) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if attempt >= c.maxRetries {
			te.Attempts = attempt + 1
			return nil, te
		}
	}
}

// postFormOnce performs one attempt and classifies the outcome
func (c *Client) postFormOnce(ctx context.Context, endpoint string, cred Credential, form url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(url.QueryEscape(cred.ClientID), url.QueryEscape(cred.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthenticationError{Status: resp.StatusCode, Code: oauthErrorCode(body), Body: snippet(body)}
	case resp.StatusCode >= 500:
		return nil, &TransientError{Status: resp.StatusCode, Body: snippet(body)}
	default:
		return nil, &ClientError{Status: resp.StatusCode, Body: snippet(body)}
	}
}
