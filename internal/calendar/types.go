package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// ConferenceTypeMeet is the conference solution type for Google Meet.
const ConferenceTypeMeet = "hangoutsMeet"

// SendUpdates values accepted by Events.Insert.
const (
	SendUpdatesAll      = "all"
	SendUpdatesExternal = "externalOnly"
	SendUpdatesNone     = "none"
)

// EventInput describes a timed event to create.
type EventInput struct {
	// ID is an optional client-chosen event id (base32hex, 5 to 1024 chars).
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// TimeZone is an IANA zone name used to render the event. Defaults to UTC.
	TimeZone  string
	Attendees []Attendee

	// ConferenceRequestID requests a Google Meet conference when non-empty.
	ConferenceRequestID string

	// SendUpdates controls whether Google emails invitations. Defaults to "all".
	SendUpdates string
}

// Attendee is an invitee of an event.
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string
}

// StatusCancelled marks a deleted event. Google keeps it under the same ID.
const StatusCancelled = "cancelled"

// Event is the subset of a Google Calendar event this service uses.
type Event struct {
	ID       string
	ICalUID  string
	HTMLLink string
	Summary  string
	Status   string
	Start    time.Time
	End      time.Time

	Attendees []Attendee

	// JoinLink is the video entry point of the conference, if one was allocated.
	JoinLink string
	// ConferenceStatus is the create request status: "pending", "success" or "failure".
	ConferenceStatus string
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID         string
	Summary    string
	TimeZone   string
	Primary    bool
	AccessRole string
}

func toEvent(event *calendar.Event) Event {
	if event == nil {
		return Event{}
	}

	ev := Event{
		ID:       event.Id,
		ICalUID:  event.ICalUID,
		HTMLLink: event.HtmlLink,
		Summary:  event.Summary,
		Status:   event.Status,
		Start:    parseEventTime(event.Start),
		End:      parseEventTime(event.End),
		JoinLink: joinLink(event),
	}

	for _, att := range event.Attendees {
		ev.Attendees = append(ev.Attendees, Attendee{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
		})
	}

	if cd := event.ConferenceData; cd != nil && cd.CreateRequest != nil && cd.CreateRequest.Status != nil {
		ev.ConferenceStatus = cd.CreateRequest.Status.StatusCode
	}

	return ev
}

// joinLink prefers the video entry point, then any entry point, then the
// legacy hangoutLink field.
func joinLink(event *calendar.Event) string {
	if cd := event.ConferenceData; cd != nil {
		for _, ep := range cd.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
		for _, ep := range cd.EntryPoints {
			if ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return event.HangoutLink
}

func parseEventTime(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse("2006-01-02", edt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:         entry.Id,
		Summary:    entry.Summary,
		TimeZone:   entry.TimeZone,
		Primary:    entry.Primary,
		AccessRole: entry.AccessRole,
	}
}
