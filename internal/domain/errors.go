package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed request parameters.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrCircuitOpen signals that the endpoint's circuit breaker is open and
	// the backend was not attempted.
	ErrCircuitOpen = errors.New("temporarily degraded")
	// ErrBackend signals an index/datastore failure during an actual attempt.
	ErrBackend = errors.New("backend error")
)

// RateLimitError wraps ErrRateLimited with a retry-after hint.
type RateLimitError struct {
	RetryAfterSec int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrRateLimited.Error(), e.RetryAfterSec)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewRateLimited creates a rate limit error with a retry-after hint in seconds.
func NewRateLimited(retryAfterSec int) error {
	return &RateLimitError{RetryAfterSec: retryAfterSec}
}
