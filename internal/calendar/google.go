package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleClient talks to the Google Calendar API with a service account.
type GoogleClient struct {
	svc        *gcal.Service
	calendarID string
}

func NewGoogleClient(ctx context.Context, credentialsFile, calendarID string) (*GoogleClient, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleClient{svc: svc, calendarID: calendarID}, nil
}

var _ Client = (*GoogleClient)(nil)

func (c *GoogleClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	overrides := make([]*gcal.EventReminder, 0, len(ev.ReminderMinutes))
	for _, m := range ev.ReminderMinutes {
		overrides = append(overrides, &gcal.EventReminder{
			Method:  "popup",
			Minutes: m,
		})
	}

	event := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Start.Location().String(),
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.End.Location().String(),
		},
	}

	if ev.AttendeeEmail != "" {
		event.Attendees = []*gcal.EventAttendee{{Email: ev.AttendeeEmail}}
	}

	if len(overrides) > 0 {
		event.Reminders = &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}

	return created.Id, nil
}

func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
