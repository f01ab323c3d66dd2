// Package calendar wraps the Google Calendar v3 API for creating meeting
// events with an attached Google Meet conference.
//
// Errors returned by the client are *Error values carrying a Kind, so
// callers can tell authentication problems from rate limiting, invalid
// input, conflicts and outages with errors.Is:
//
//	ev, err := client.InsertEvent(ctx, "primary", input)
//	if errors.Is(err, calendar.ErrRateLimit) {
//	    ...
//	}
package calendar
