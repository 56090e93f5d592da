package github

import (
	"fmt"
	"time"

	"github.com/starford/furyload/internal/apperr"
)

// APIError is a non-404 error response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
	Operation  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Unwrap lets callers match upstream failures with errors.Is.
func (e *APIError) Unwrap() error {
	return apperr.ErrUpstream
}

// RateLimitError is returned when the API quota is exhausted.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limited (%d/%d remaining), resets at %s",
		e.Remaining, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// Unwrap lets callers match upstream failures with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return apperr.ErrUpstream
}
