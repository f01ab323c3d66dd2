package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetingbooker/internal/instrumentation"
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client on top of an authenticated HTTP client.
// Extra options are appended, e.g. option.WithEndpoint in tests.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// SetMetrics enables recording of provider operation metrics.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// InsertEvent creates a timed event on calendarID. When input.ConferenceRequestID
// is set a Google Meet conference is requested in the same call.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*Event, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationInsert, calendarID)
	defer span.End()
	start := time.Now()

	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	sendUpdates := input.SendUpdates
	if sendUpdates == "" {
		sendUpdates = SendUpdatesAll
	}

	event := &calendar.Event{
		Id:          input.ID,
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	for _, a := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
		})
	}

	call := c.svc.Events.Insert(calendarID, event).SendUpdates(sendUpdates).Context(ctx)
	if input.ConferenceRequestID != "" {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: input.ConferenceRequestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: ConferenceTypeMeet,
				},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	c.record(ctx, instrumentation.OperationInsert, err, start)
	if err != nil {
		err = wrapError("create event", err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	ev := toEvent(created)
	return &ev, nil
}

// GetEvent retrieves a specific event by ID
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationGet, calendarID)
	defer span.End()
	start := time.Now()

	event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	c.record(ctx, instrumentation.OperationGet, err, start)
	if err != nil {
		err = wrapError("get event", err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	ev := toEvent(event)
	return &ev, nil
}

// GetCalendar retrieves the calendar list entry of calendarID. It doubles as
// a connectivity and authorization check.
func (c *Client) GetCalendar(ctx context.Context, calendarID string) (*CalendarInfo, error) {
	start := time.Now()

	entry, err := c.svc.CalendarList.Get(calendarID).Context(ctx).Do()
	c.record(ctx, instrumentation.OperationGet, err, start)
	if err != nil {
		return nil, wrapError("get calendar", err)
	}

	info := toCalendarInfo(entry)
	return &info, nil
}

func (c *Client) record(ctx context.Context, operation string, err error, start time.Time) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordProviderOperation(ctx, instrumentation.ProviderCalendar, operation, status, time.Since(start))
}
