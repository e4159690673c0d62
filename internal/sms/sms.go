package sms

import "context"

// Sender delivers a single text message. Like the calendar client, a
// failing sender never blocks a booking; callers record the failure and
// move on.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Noop is used when no SMS provider is configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, to, body string) error {
	return nil
}
