package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/meetingbooker/internal/calendar"
)

// Provider failure reasons.
const (
	ReasonAuth        = "auth"
	ReasonRateLimit   = "rate_limit"
	ReasonValidation  = "validation"
	ReasonConflict    = "conflict"
	ReasonUnavailable = "unavailable"
	ReasonUnknown     = "unknown"
)

// ReasonInvalidRequest is reported for client errors.
const ReasonInvalidRequest = "invalid_request"

// ProviderError is a calendar provider failure. No event was created.
type ProviderError struct {
	Reason string
	Err    error
}

// NewProviderError classifies err.
func NewProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Reason: reasonFor(err), Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar provider failure (%s): %v", e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func reasonFor(err error) string {
	switch {
	case errors.Is(err, calendar.ErrAuth):
		return ReasonAuth
	case errors.Is(err, calendar.ErrRateLimit):
		return ReasonRateLimit
	case errors.Is(err, calendar.ErrValidation):
		return ReasonValidation
	case errors.Is(err, calendar.ErrConflict):
		return ReasonConflict
	case errors.Is(err, calendar.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ReasonUnavailable
	default:
		return ReasonUnknown
	}
}
