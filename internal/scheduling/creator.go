package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/meetingbooker/internal/calendar"
	"github.com/teemow/meetingbooker/internal/logging"
)

// ErrEventCancelled is returned when the derived event ID belongs to an event
// that was cancelled. Google does not allow reusing the ID.
var ErrEventCancelled = errors.New("event for this slot was cancelled")

// EventResult is the calendar event created for a request.
type EventResult struct {
	EventID string
	Summary string
	// JoinLink is empty when the provider did not allocate a conference yet.
	JoinLink string
	HTMLLink string
	ICalUID  string
	Window   MeetingWindow
	// Location is the event timezone.
	Location string
}

// EventCreator creates the calendar event for a validated request.
type EventCreator interface {
	CreateEvent(ctx context.Context, req MeetingRequest) (EventResult, error)
}

// EventInserter is the calendar API used by CalendarEventCreator.
// *calendar.Client implements it.
type EventInserter interface {
	InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error)
}

// CalendarEventCreator creates Google Meet events on one calendar.
type CalendarEventCreator struct {
	api    EventInserter
	policy Policy
	logger *slog.Logger
}

// NewCalendarEventCreator returns a creator using policy for every event.
func NewCalendarEventCreator(api EventInserter, policy Policy, logger *slog.Logger) *CalendarEventCreator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarEventCreator{
		api:    api,
		policy: policy,
		logger: logging.WithComponent(logger, "event_creator"),
	}
}

// CreateEvent inserts one event with the attendee as the only invitee and a
// conference create request. Failures are returned as *ProviderError.
func (c *CalendarEventCreator) CreateEvent(ctx context.Context, req MeetingRequest) (EventResult, error) {
	loc := c.policy.location()
	window := NewMeetingWindow(req.Start, c.policy.duration()).In(loc)
	key := NewIdempotencyKey(c.policy.IdempotencyMode, req)

	input := calendar.EventInput{
		ID:          key.EventID,
		Summary:     c.policy.summary(req.AttendeeName),
		Description: c.policy.Description,
		Start:       window.Start,
		End:         window.End,
		TimeZone:    loc.String(),
		Attendees: []calendar.Attendee{{
			Email:       req.AttendeeEmail,
			DisplayName: req.AttendeeName,
		}},
		ConferenceRequestID: key.RequestID,
		SendUpdates:         calendar.SendUpdatesAll,
	}

	event, err := c.api.InsertEvent(ctx, c.policy.CalendarID, input)
	if err != nil && key.EventID != "" && errors.Is(err, calendar.ErrConflict) {
		c.logger.InfoContext(ctx, "event already exists, reusing it",
			logging.EventID(key.EventID))
		event, err = c.api.GetEvent(ctx, c.policy.CalendarID, key.EventID)
	}
	if err != nil {
		return EventResult{}, NewProviderError(fmt.Errorf("failed to create event: %w", err))
	}
	if event.Status == calendar.StatusCancelled {
		c.logger.WarnContext(ctx, "existing event was cancelled", logging.EventID(event.ID))
		return EventResult{}, &ProviderError{Reason: ReasonConflict, Err: ErrEventCancelled}
	}

	result := EventResult{
		EventID:  event.ID,
		Summary:  input.Summary,
		JoinLink: event.JoinLink,
		HTMLLink: event.HTMLLink,
		ICalUID:  event.ICalUID,
		Window:   window,
		Location: loc.String(),
	}
	if result.JoinLink == "" {
		c.logger.WarnContext(ctx, "event created without a join link",
			logging.EventID(event.ID),
			slog.String("conference_status", event.ConferenceStatus))
	}
	return result, nil
}
