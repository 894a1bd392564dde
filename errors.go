package authvital

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Configuration and validation errors
var (
	ErrNoCredential      = errors.New("authvital: client ID and client secret are required")
	ErrInvalidCredential = errors.New("authvital: client ID and client secret cannot be empty")
	ErrInvalidHost       = errors.New("authvital: host must be an absolute http(s) URL")
	ErrInvalidTimeout    = errors.New("authvital: timeout must be positive")
	ErrInvalidMaxRetries = errors.New("authvital: max retries cannot be negative")
	ErrNilRequest        = errors.New("authvital: request is nil")
	ErrEmptyPath         = errors.New("authvital: request path cannot be empty")
)

// AuthenticationError reports that the identity platform rejected the
// client's credentials or token. It is fatal: the SDK never retries it, and
// callers should not either without changing credentials.
type AuthenticationError struct {
	Status int    // HTTP status code of the rejecting response
	Code   string // OAuth2 error code such as "invalid_client", empty if absent
	Body   string // truncated response body for diagnosis
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authvital: authentication failed with status %d (%s): %s", e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("authvital: authentication failed with status %d: %s", e.Status, e.Body)
}

// TransientError reports a failure that is expected to succeed on retry: a
// network error, a timeout, or a 5xx response. The SDK retries these per the
// configured policy before surfacing the last one.
type TransientError struct {
	Status   int    // HTTP status, 0 for network-level failures
	Body     string // truncated response body, empty for network-level failures
	Attempts int    // total attempts made before giving up
	Err      error  // underlying transport error, nil for HTTP failures
}

// Error implements the error interface
func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authvital: transient failure after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("authvital: transient failure after %d attempt(s), status %d: %s", e.Attempts, e.Status, e.Body)
}

// Unwrap returns the underlying transport error, if any
func (e *TransientError) Unwrap() error { return e.Err }

// ClientError reports a 4xx response other than 401: the request itself was
// malformed or not permitted. Never retried.
type ClientError struct {
	Status int    // HTTP status code
	Body   string // truncated response body for diagnosis
}

// Error implements the error interface
func (e *ClientError) Error() string {
	return fmt.Sprintf("authvital: request rejected with status %d: %s", e.Status, e.Body)
}

// maxBodySnippet bounds how much of an error response body is carried on
// errors so they stay loggable
const maxBodySnippet = 512

// snippet trims and truncates an error response body
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodySnippet {
		return s[:maxBodySnippet] + "..."
	}
	return s
}

// oauthErrorCode extracts the RFC 6749 error code from an error response
// body, returning "" when the body is not a recognizable OAuth2 error
func oauthErrorCode(body []byte) string {
	var e struct {
		Code string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Code
}
