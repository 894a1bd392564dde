package authvital

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one authenticated call to a platform resource endpoint.
// Requests are transient: the client never retains them after Do returns.
type Request struct {
	Method     string      // HTTP method, defaults to GET when empty
	Path       string      // resolved against the client host
	Query      url.Values  // optional query parameters
	Header     http.Header // extra headers; Authorization is managed by the client
	Body       []byte      // request body, re-read from memory on retries
	Idempotent bool        // marks non-GET requests safe for transient retries
}

// validate checks the request before any network activity
func (r *Request) validate() error {
	if r == nil {
		return ErrNilRequest
	}
	if r.Path == "" {
		return ErrEmptyPath
	}
	return nil
}

// method returns the effective HTTP method
func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// idempotent reports whether the request may be repeated on transient
// failures without risking duplicate side effects
func (r *Request) idempotent() bool {
	switch r.method() {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return r.Idempotent
}

// Response carries the outcome of a Request. Do surfaces statuses of 400
// and above as errors, so a returned Response has a 2xx or 3xx status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON unmarshals the response body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}
