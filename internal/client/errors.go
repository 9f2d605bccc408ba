package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoToken is returned when an authenticated operation is attempted
// without a configured device token. It is detected before any network call.
var ErrNoToken = errors.New("no device token provided")

// TransportError indicates the request could not be sent or its response
// body could not be read. It wraps the underlying network error.
type TransportError struct {
	Op  string // "send request" or "read response body"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a structured error response from the platform: a 4xx/5xx
// status whose body carried the expected {error, code?} envelope.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Headers    http.Header
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("received error response %d: %s (code %s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("received error response %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError is a 4xx/5xx status whose body did not parse as
// the platform's error envelope, e.g. an HTML error page from a proxy.
// The raw body text is preserved for diagnostics.
type MalformedResponseError struct {
	StatusCode int
	Body       string
	Headers    http.Header
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("received malformed error response %d with body %q", e.StatusCode, e.Body)
}

// ParseError indicates a success response whose body failed to decode into
// the expected schema.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from an error returned by this
// package. It reports false for errors that never reached an HTTP status
// (transport failures, missing token, parse failures).
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return malformed.StatusCode, true
	}
	return 0, false
}
