package authvital

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fed-stew/authvital/retry"
)

// Defaults applied by New
const (
	DefaultHost       = "https://api.authvital.io"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3

	defaultUserAgent = "authvital-go"
)

// Client is an AuthVital API client. It owns the credential store and the
// in-memory token cache, attaches bearer tokens to outgoing requests, and
// converts failures into the AuthenticationError / TransientError /
// ClientError taxonomy.
//
// A Client is safe for concurrent use from multiple goroutines.
type Client struct {
	host       *url.URL
	endpoints  Endpoints
	httpClient *http.Client
	ownHTTP    bool
	timeout    time.Duration
	maxRetries int
	policy     retry.Policy
	clock      retry.Clock
	logger     *slog.Logger
	userAgent  string
	scopes     []string
	margin     time.Duration

	store  *credentialStore
	tokens *tokenManager

	// raw option inputs, resolved by New
	rawHost string
	cred    Credential
}

// New creates a new AuthVital client. A client ID and secret are required;
// everything else has working defaults.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		rawHost:    DefaultHost,
		endpoints:  DefaultEndpoints(),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		clock:      retry.RealClock{},
		logger:     slog.New(slog.DiscardHandler),
		userAgent:  defaultUserAgent,
		margin:     DefaultExpiryMargin,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cred == (Credential{}) {
		return nil, ErrNoCredential
	}
	if err := c.cred.Validate(); err != nil {
		return nil, err
	}
	host, err := url.Parse(c.rawHost)
	if err != nil || host.Scheme == "" || host.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHost, c.rawHost)
	}
	if host.Scheme != "http" && host.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHost, c.rawHost)
	}
	c.host = host
	if c.timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	if c.maxRetries < 0 {
		return nil, ErrInvalidMaxRetries
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
		c.ownHTTP = true
	}
	if c.policy == nil {
		c.policy = retry.NewExponential(500*time.Millisecond, 10*time.Second, 0.2, time.Now().UnixNano())
	}

	c.store = newCredentialStore(c.cred)
	c.tokens = &tokenManager{
		store:      c.store,
		httpClient: c.httpClient,
		tokenURL:   c.host.JoinPath(c.endpoints.Token).String(),
		scopes:     c.scopes,
		userAgent:  c.userAgent,
		clock:      c.clock,
		policy:     c.policy,
		maxRetries: c.maxRetries,
		timeout:    c.timeout,
		margin:     c.margin,
		logger:     c.logger.With("component", "token_manager"),
	}
	c.store.onChange = c.tokens.Invalidate

	return c, nil
}

// Do sends an authenticated request to a resource endpoint. A 401 response
// invalidates the cached token and the request is retried exactly once with
// a fresh one; a second 401 surfaces as *AuthenticationError. Network and
// 5xx failures are retried per the policy for idempotent requests only.
// Other 4xx responses surface immediately as *ClientError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	logger := c.logger.With("component", "transport", "method", req.method(), "path", req.Path)

	var refreshed bool
	var attempt int
	for {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.roundTrip(ctx, req, tok)
		if err != nil {
			// The caller's own cancellation is not a transport failure
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !req.idempotent() || attempt >= c.maxRetries {
				return nil, &TransientError{Err: err, Attempts: attempt + 1}
			}
			attempt++
			logger.Warn("request failed, will retry", "attempt", attempt, "error", err)
			if serr := c.clock.Sleep(ctx, c.policy.Delay(attempt)); serr != nil {
				return nil, serr
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				logger.Debug("second 401 after token refresh")
				return nil, &AuthenticationError{Status: resp.StatusCode, Code: oauthErrorCode(resp.Body), Body: snippet(resp.Body)}
			}
			refreshed = true
			logger.Debug("401 received, refreshing token")
			c.tokens.Invalidate()
			continue

		case resp.StatusCode >= 500:
			if !req.idempotent() || attempt >= c.maxRetries {
				return nil, &TransientError{Status: resp.StatusCode, Body: snippet(resp.Body), Attempts: attempt + 1}
			}
			attempt++
			logger.Warn("server error, will retry", "attempt", attempt, "status", resp.StatusCode)
			if serr := c.clock.Sleep(ctx, c.policy.Delay(attempt)); serr != nil {
				return nil, serr
			}
			continue

		case resp.StatusCode >= 400:
			return nil, &ClientError{Status: resp.StatusCode, Body: snippet(resp.Body)}

		default:
			return resp, nil
		}
	}
}

// Get issues an authenticated GET against path
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// Post issues an authenticated POST with a JSON body against path. POSTs are
// not retried on transient failures; flag the request Idempotent and use Do
// when a repeat is known to be safe.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	req := &Request{Method: http.MethodPost, Path: path, Body: body}
	if len(body) > 0 {
		req.Header = http.Header{"Content-Type": []string{"application/json"}}
	}
	return c.Do(ctx, req)
}

// Token returns a valid access token, refreshing it when the cached one is
// missing or about to expire. Concurrent callers share a single refresh.
func (c *Client) Token(ctx context.Context) (Token, error) {
	return c.tokens.Token(ctx)
}

// InvalidateToken discards the cached token; the next call that needs one
// will refresh
func (c *Client) InvalidateToken() {
	c.tokens.Invalidate()
}

// SetCredential atomically replaces the client credential. Changing the
// credential invalidates the cached token.
func (c *Client) SetCredential(cred Credential) error {
	return c.store.SetCredential(cred)
}

// Credential returns the active credential
func (c *Client) Credential() Credential {
	return c.store.Credential()
}

// Host returns the configured platform host
func (c *Client) Host() string {
	return c.host.String()
}

// Close discards the cached token and releases idle connections when the
// HTTP client is owned by this Client
func (c *Client) Close() {
	c.tokens.Invalidate()
	if c.ownHTTP {
		c.httpClient.CloseIdleConnections()
	}
}

// roundTrip performs a single HTTP attempt with the bearer token attached
func (c *Client) roundTrip(ctx context.Context, req *Request, tok Token) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.host.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       respBody,
	}, nil
}
