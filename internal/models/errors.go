package models

import "fmt"

// ErrorKind is a string type for consistent error classification. The kinds
// double as the error_type label on the flume_api_errors_total counter.
type ErrorKind string

const (
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindHTTP      ErrorKind = "http"
	ErrorKindNetwork   ErrorKind = "network"
	ErrorKindMalformed ErrorKind = "malformed_response"
	ErrorKindConfig    ErrorKind = "config"
)

// AuthError reports a failed login/refresh against the vendor, or a 401 on a
// data call. The collector treats it as tick-scoped; it never crashes the
// process.
type AuthError struct {
	Op         string // "login", "refresh", or the data endpoint that returned 401
	StatusCode int    // zero when the failure happened before an HTTP response
	Message    string
}

// Error makes AuthError implement the error interface.
func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth failed during %s (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("auth failed during %s: %s", e.Op, e.Message)
}

// APIError reports a non-auth failure on a vendor data call: non-2xx status,
// network error, or a body that did not parse.
type APIError struct {
	Endpoint   string
	Kind       ErrorKind
	StatusCode int
	Message    string
}

// Error makes APIError implement the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s request failed (status %d): %s", e.Kind, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s request failed: %s", e.Kind, e.Endpoint, e.Message)
}

// ConfigError reports missing or invalid startup configuration. It is fatal:
// main logs it and exits rather than starting with partial credentials.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("incomplete configuration, missing required variables: %v", e.Missing)
}
