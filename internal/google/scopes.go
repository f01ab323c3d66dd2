package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// CalendarScopes are requested for every authorization.
var CalendarScopes = []string{
	calendar.CalendarScope,
	calendar.CalendarEventsScope,
}

// Scopes returns the scopes to request. The Gmail send scope is added
// when confirmations are delivered through the Gmail API.
func Scopes(gmailSend bool) []string {
	scopes := append([]string(nil), CalendarScopes...)
	if gmailSend {
		scopes = append(scopes, gmail.GmailSendScope)
	}
	return scopes
}
