package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/meetingbooker/internal/scheduling"
)

// Formats used in the confirmation.
const (
	WhenLayout     = "Monday, January 2, 2006 at 03:04 PM MST"
	SubjectLayout  = "1/2/2006"
	calendarLayout = "20060102T150405Z"
)

// CalendarTemplateURL is the Google Calendar event template endpoint.
const CalendarTemplateURL = "https://calendar.google.com/calendar/render"

// Confirmation is the data rendered into the email templates.
type Confirmation struct {
	AttendeeName  string
	AttendeeEmail string
	Summary       string
	When          string
	Duration      string
	Platform      string
	JoinLink      string
	EventLink     string
	AddToCalendar string
	Signature     string

	window scheduling.MeetingWindow
}

// NewConfirmation builds the payload for event, rendering times in loc.
func NewConfirmation(req scheduling.MeetingRequest, event scheduling.EventResult, loc *time.Location, signature string) Confirmation {
	if loc == nil {
		loc = time.UTC
	}
	window := event.Window
	if window.Start.IsZero() {
		window = scheduling.NewMeetingWindow(req.Start, scheduling.DefaultDuration)
	}
	summary := event.Summary
	if summary == "" {
		summary = fmt.Sprintf(scheduling.DefaultSummaryFormat, req.AttendeeName)
	}

	c := Confirmation{
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		Summary:       summary,
		When:          window.Start.In(loc).Format(WhenLayout),
		Duration:      FormatDuration(window.Duration()),
		JoinLink:      event.JoinLink,
		EventLink:     event.HTMLLink,
		Signature:     signature,
		window:        window,
	}
	if c.JoinLink != "" {
		c.Platform = "Google Meet Video Call"
	}
	c.AddToCalendar = AddToCalendarURL(summary, window, c.Details(), c.JoinLink)
	return c
}

// Subject returns the email subject, dated in the start's timezone.
func (c Confirmation) Subject(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return "Meeting Scheduled - " + c.window.Start.In(loc).Format(SubjectLayout)
}

// Details is the event description used in calendar links and invites.
func (c Confirmation) Details() string {
	if c.JoinLink == "" {
		return "Meeting scheduled via booking system."
	}
	return "Meeting scheduled via booking system.\n\nJoin here: " + c.JoinLink
}

// Window returns the meeting window.
func (c Confirmation) Window() scheduling.MeetingWindow { return c.window }

// AddToCalendarURL returns a Google Calendar link that pre-fills an event.
func AddToCalendarURL(summary string, window scheduling.MeetingWindow, details, location string) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", summary)
	q.Set("dates", window.Start.UTC().Format(calendarLayout)+"/"+window.End.UTC().Format(calendarLayout))
	if details != "" {
		q.Set("details", details)
	}
	if location != "" {
		q.Set("location", location)
	}
	return CalendarTemplateURL + "?" + q.Encode()
}

// FormatDuration renders d as "30 minutes", "1 hour" or "1 hour 15 minutes".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 || hours == 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
