package fetcher

import (
	"fmt"
	"strings"
)

// ErrorType represents the category of error that occurred during a fetch
// operation
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeAuth indicates the upstream refused the request outright
	// (HTTP 401/403), typically because the egress point has been blocked
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 401/403/429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeNoData indicates the response was received but carried no
	// usable quote data
	ErrorTypeNoData ErrorType = "no_data"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsAuth reports whether the error is an authorization failure. The proxy
// pool blocks the egress point immediately on these since they are not
// transient.
func (e *FetchError) IsAuth() bool {
	return e.Type == ErrorTypeAuth
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	msg := "network request failed"
	if cause != nil && strings.Contains(strings.ToLower(cause.Error()), "timeout") {
		return NewTimeoutError(cause)
	}
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   msg,
		Cause:     cause,
	}
}

// NewAuthError creates an authorization error
func NewAuthError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeAuth,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    "request unauthorized or blocked",
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewNoDataError creates an empty-payload error
func NewNoDataError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNoData,
		Retryable: true,
		Message:   message,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 401 || statusCode == 403:
		return NewAuthError(statusCode)
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return &FetchError{
			Type:       ErrorTypeClient,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("client error: HTTP %d", statusCode),
		}
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// IsAuthMessage reports whether a raw error string looks like an upstream
// authorization refusal.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden")
}
