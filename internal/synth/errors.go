package synth

import (
	"errors"
	"fmt"
)

// ErrEmptyText is returned when the request text is empty or whitespace.
// It is rejected before any upstream call is made.
var ErrEmptyText = errors.New("text must not be empty")

// ErrMissingCredentials is returned when no upstream API key is configured.
// Fatal for the request, not for the process.
var ErrMissingCredentials = errors.New("synthesis API key is not configured")

// ErrUpstreamUnavailable is returned when the circuit breaker is open and
// the upstream is not being attempted.
var ErrUpstreamUnavailable = errors.New("synthesis upstream unavailable")

// UpstreamError carries a non-success status and message from the
// synthesis upstream.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("synthesis upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("synthesis upstream returned status %d: %s", e.Status, e.Message)
}
