package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSlotTaken           = errors.New("slot already has a confirmed appointment")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository is the reservation store. Reserve must be atomic with
// respect to the one-confirmed-appointment-per-slot invariant: when two
// callers race for the same (date, slot), exactly one wins and the other
// gets ErrSlotTaken.
type Repository interface {
	Reserve(ctx context.Context, draft Draft) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error)
	AttachCalendarRef(ctx context.Context, id uuid.UUID, eventID string) error
	ListOccupiedSlots(ctx context.Context) ([]SlotRef, error)
	ListAll(ctx context.Context) ([]Appointment, error)
}
