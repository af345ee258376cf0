package github

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all transport retry attempts failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrMissingToken is returned by NewClient without an access token.
	ErrMissingToken = errors.New("github token is required")
)

// ErrorClass represents a classification of transport errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 403/429 responses caused by the quota.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed GraphQL query that is neither a quota signal nor a
// missing resource.
type APIError struct {
	Resource string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github %s: %s: %v", e.Resource, e.Message, e.Err)
	}
	return fmt.Sprintf("github %s: %s", e.Resource, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if a transport error class should be retried.
// Quota responses are left to the collection engine.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// isRateLimitError checks if a query error reports an exhausted quota.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limited") ||
		strings.Contains(msg, "you have exceeded")
}

// isNotFoundError checks if a query error reports an unknown user,
// repository or ref.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Could not resolve to") ||
		strings.Contains(strings.ToLower(msg), "not_found")
}
