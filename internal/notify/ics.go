package notify

import (
	"bytes"
	"fmt"
	"net/mail"
	"time"

	"github.com/emersion/go-ical"
)

const (
	icsProductID   = "-//teemow//meetingbooker//EN"
	icsMethod      = "PUBLISH"
	icsContentType = "text/calendar; charset=utf-8; method=PUBLISH"
	icsFilename    = "invite.ics"
)

// BuildICS renders the meeting as an iCalendar object. uid should be the
// provider's iCalUID so calendar clients merge it with the invitation.
func BuildICS(c Confirmation, uid string, organizer mail.Address, stamp time.Time) ([]byte, error) {
	if uid == "" {
		return nil, fmt.Errorf("event uid is required")
	}
	window := c.Window()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)
	cal.Props.SetText(ical.PropMethod, icsMethod)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, window.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, window.End.UTC())
	event.Props.SetText(ical.PropSummary, c.Summary)
	event.Props.SetText(ical.PropDescription, c.Details())
	event.Props.SetText(ical.PropStatus, "CONFIRMED")
	if c.JoinLink != "" {
		event.Props.SetText(ical.PropLocation, c.JoinLink)
	}
	if organizer.Address != "" {
		event.Props.Set(addressProp(ical.PropOrganizer, organizer))
	}
	event.Props.Set(addressProp(ical.PropAttendee, mail.Address{Name: c.AttendeeName, Address: c.AttendeeEmail}))
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func addressProp(name string, addr mail.Address) *ical.Prop {
	prop := ical.NewProp(name)
	prop.Value = "mailto:" + addr.Address
	if addr.Name != "" {
		prop.Params.Set(ical.ParamCommonName, addr.Name)
	}
	return prop
}
