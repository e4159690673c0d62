package calendar

import (
	"context"
	"time"
)

// Event is a provider-independent calendar event.
type Event struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	// ReminderMinutes are offsets before Start at which the provider
	// should notify the attendee.
	ReminderMinutes []int64
}

// Client creates and deletes events on the clinic's calendar. Failures
// are always tolerated by callers; a broken calendar never blocks a
// booking.
type Client interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// Noop is used when no calendar credentials are configured.
type Noop struct{}

func (Noop) CreateEvent(ctx context.Context, ev Event) (string, error) {
	return "", nil
}

func (Noop) DeleteEvent(ctx context.Context, eventID string) error {
	return nil
}
