package scheduling

import "time"

// DefaultDuration is the meeting length used when none is configured.
const DefaultDuration = 30 * time.Minute

// MeetingWindow is the time span of a meeting.
type MeetingWindow struct {
	Start time.Time
	End   time.Time
}

// NewMeetingWindow returns the window starting at start. The end is computed
// on absolute time, so the length is exact across DST transitions.
func NewMeetingWindow(start time.Time, d time.Duration) MeetingWindow {
	return MeetingWindow{Start: start, End: start.Add(d)}
}

// Duration returns End - Start.
func (w MeetingWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// In returns the window expressed in loc.
func (w MeetingWindow) In(loc *time.Location) MeetingWindow {
	return MeetingWindow{Start: w.Start.In(loc), End: w.End.In(loc)}
}
