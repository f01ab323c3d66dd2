package scheduling

import (
	"context"
	"sync"

	"github.com/teemow/meetingbooker/internal/calendar"
)

type fakeCreator struct {
	mu     sync.Mutex
	calls  int
	got    []MeetingRequest
	result EventResult
	err    error
}

func (f *fakeCreator) CreateEvent(ctx context.Context, req MeetingRequest) (EventResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = append(f.got, req)
	if f.err != nil {
		return EventResult{}, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  int
	ok     bool
	ctxErr error
	event  EventResult
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, req MeetingRequest, event EventResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxErr = ctx.Err()
	f.event = event
	return f.ok
}

type fakeInserter struct {
	inserted  []calendar.EventInput
	insertErr error
	getCalls  int
	getErr    error
	event     *calendar.Event
}

func (f *fakeInserter) InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.Event, error) {
	f.inserted = append(f.inserted, input)
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	ev := *f.event
	return &ev, nil
}

func (f *fakeInserter) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	ev := *f.event
	ev.ID = eventID
	return &ev, nil
}
