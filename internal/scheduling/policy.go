package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// IdempotencyMode selects how conference request ids are produced.
type IdempotencyMode string

const (
	// IdempotencyRandom uses a fresh id per call. Resubmitting a request
	// creates a second event.
	IdempotencyRandom IdempotencyMode = "random"
	// IdempotencyDerived derives the id from attendee email and start time and
	// uses it as the event id, so a resubmission resolves to the existing event.
	IdempotencyDerived IdempotencyMode = "derived"
)

// ParseIdempotencyMode parses "random" or "derived". Empty means random.
func ParseIdempotencyMode(s string) (IdempotencyMode, error) {
	switch IdempotencyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", IdempotencyRandom:
		return IdempotencyRandom, nil
	case IdempotencyDerived:
		return IdempotencyDerived, nil
	default:
		return "", fmt.Errorf("unknown idempotency mode %q (want random or derived)", s)
	}
}

// Defaults for Policy.
const (
	DefaultCalendarID    = "primary"
	DefaultSummaryFormat = "Meeting with %s"
	DefaultDescription   = "Auto-scheduled via meetingbooker"
	DefaultCallTimeout   = 30 * time.Second
)

// Policy holds the scheduling settings shared by every request.
type Policy struct {
	CalendarID string
	Duration   time.Duration
	// Location is the event timezone. It also interprets dateTime values
	// that carry no offset.
	Location *time.Location
	// SummaryFormat is a fmt format taking the attendee name.
	SummaryFormat   string
	Description     string
	IdempotencyMode IdempotencyMode
	// CallTimeout bounds each provider step separately.
	CallTimeout time.Duration
}

// DefaultPolicy returns a 30 minute UTC policy on the primary calendar.
func DefaultPolicy() Policy {
	return Policy{
		CalendarID:      DefaultCalendarID,
		Duration:        DefaultDuration,
		Location:        time.UTC,
		SummaryFormat:   DefaultSummaryFormat,
		Description:     DefaultDescription,
		IdempotencyMode: IdempotencyRandom,
		CallTimeout:     DefaultCallTimeout,
	}
}

// Validate reports every invalid setting.
func (p Policy) Validate() error {
	var errs []error
	if strings.TrimSpace(p.CalendarID) == "" {
		errs = append(errs, errors.New("calendar id is required"))
	}
	if p.Duration <= 0 {
		errs = append(errs, fmt.Errorf("meeting duration must be positive, got %s", p.Duration))
	}
	if p.Location == nil {
		errs = append(errs, errors.New("timezone is required"))
	}
	if !strings.Contains(p.SummaryFormat, "%s") {
		errs = append(errs, fmt.Errorf("summary format %q must contain %%s", p.SummaryFormat))
	}
	if _, err := ParseIdempotencyMode(string(p.IdempotencyMode)); err != nil {
		errs = append(errs, err)
	}
	if p.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("call timeout must not be negative, got %s", p.CallTimeout))
	}
	return errors.Join(errs...)
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p Policy) summary(name string) string {
	format := p.SummaryFormat
	if format == "" {
		format = DefaultSummaryFormat
	}
	return fmt.Sprintf(format, name)
}

func (p Policy) duration() time.Duration {
	if p.Duration <= 0 {
		return DefaultDuration
	}
	return p.Duration
}
