package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure talking to the market data API
type NetworkError struct {
	Op        string // Operation that failed (e.g., "GET /global")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// APIError is returned when the API answers with a non-2xx status
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsRetriable reports whether waiting could change the outcome (rate limits and server errors).
func (e *APIError) IsRetriable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether the requested resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidBookmark is returned when a bookmark record has no id. Not retriable.
	ErrInvalidBookmark = errors.New("invalid bookmark")

	// ErrInvalidCoinID is returned when a query names an empty or malformed coin id
	ErrInvalidCoinID = errors.New("invalid coin id")

	// ErrStaleResponse is returned when a response was superseded by a newer request
	ErrStaleResponse = errors.New("stale response")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
