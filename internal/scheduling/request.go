package scheduling

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// RawRequest is the wire shape of a booking request.
type RawRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	DateTime string `json:"dateTime"`
}

// MeetingRequest is a validated booking request.
type MeetingRequest struct {
	AttendeeName  string
	AttendeeEmail string
	Start         time.Time
}

// FieldError describes one invalid request field, using the wire field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ClientInputError reports every problem found in a request.
type ClientInputError struct {
	Fields []FieldError
}

// NewClientInputError creates an error for a single field.
func NewClientInputError(field, message string) *ClientInputError {
	return &ClientInputError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ClientInputError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ClientInputError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// localLayouts are accepted for dateTime values without a UTC offset.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseRequest validates raw. A dateTime without offset is interpreted in loc.
// The returned error is always a *ClientInputError.
func ParseRequest(raw RawRequest, loc *time.Location) (MeetingRequest, error) {
	if loc == nil {
		loc = time.UTC
	}

	var req MeetingRequest
	errs := &ClientInputError{}

	req.AttendeeName = strings.TrimSpace(raw.Name)
	if req.AttendeeName == "" {
		errs.add("name", "is required")
	} else if strings.ContainsAny(req.AttendeeName, "\r\n") {
		errs.add("name", "must be a single line")
	}

	email := strings.TrimSpace(raw.Email)
	switch addr, err := mail.ParseAddress(email); {
	case email == "":
		errs.add("email", "is required")
	case err != nil || addr.Address != email:
		errs.add("email", "is not a valid email address")
	default:
		req.AttendeeEmail = addr.Address
	}

	dt := strings.TrimSpace(raw.DateTime)
	if dt == "" {
		errs.add("dateTime", "is required")
	} else if start, err := parseDateTime(dt, loc); err != nil {
		errs.add("dateTime", "must be RFC 3339, e.g. 2025-03-10T09:00:00+05:30")
	} else {
		req.Start = start
	}

	if len(errs.Fields) > 0 {
		return MeetingRequest{}, errs
	}
	return req, nil
}

func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
