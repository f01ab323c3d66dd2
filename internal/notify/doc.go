// Package notify sends the confirmation email for a scheduled meeting.
//
// The confirmation carries the meeting time in the display timezone, the
// video join link, a Google Calendar "add to calendar" link and, optionally,
// an iCalendar attachment. Sending is a single best-effort attempt: the
// Notifier reports success as a bool and never fails the scheduling request.
package notify
