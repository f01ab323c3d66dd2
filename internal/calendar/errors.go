package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/teemow/meetingbooker/internal/google"
)

// Error kinds. An *Error matches its kind with errors.Is.
var (
	ErrAuth        = errors.New("calendar authentication failed")
	ErrRateLimit   = errors.New("calendar rate limit exceeded")
	ErrValidation  = errors.New("calendar rejected the request")
	ErrConflict    = errors.New("calendar event already exists")
	ErrUnavailable = errors.New("calendar unavailable")
	ErrUnknown     = errors.New("calendar request failed")
)

// Error is returned by every Client method that talks to the API.
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	// Reason is the first googleapi error reason, e.g. "rateLimitExceeded".
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to %s: %v (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// wrapError classifies err into an *Error for operation op.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	e := &Error{Op: op, Kind: ErrUnknown, Err: err}

	var apiErr *googleapi.Error
	var retrieveErr *oauth2.RetrieveError
	var netErr net.Error

	switch {
	case errors.As(err, &apiErr):
		e.StatusCode = apiErr.Code
		if len(apiErr.Errors) > 0 {
			e.Reason = apiErr.Errors[0].Reason
		}
		e.Kind = kindForStatus(apiErr.Code, e.Reason)
	case errors.As(err, &retrieveErr), errors.Is(err, google.ErrNoToken):
		e.Kind = ErrAuth
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e.Kind = ErrUnavailable
	case errors.As(err, &netErr):
		e.Kind = ErrUnavailable
	}

	return e
}

func kindForStatus(code int, reason string) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		switch reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return ErrRateLimit
		}
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusBadRequest, http.StatusNotFound:
		return ErrValidation
	case http.StatusConflict, http.StatusGone, http.StatusPreconditionFailed:
		return ErrConflict
	}
	if code >= 500 {
		return ErrUnavailable
	}
	return ErrUnknown
}
