package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Slots are the eight bookable start times of a clinic day.
// The two-hour gap at noon is the clinic's lunch break.
var Slots = []string{
	"08:00", "09:00", "10:00", "11:00",
	"13:00", "14:00", "15:00", "16:00",
}

// ServiceType identifies one of the clinic's offered treatments.
type ServiceType string

const (
	ServiceLimpieza       ServiceType = "limpieza-dental"
	ServiceConsulta       ServiceType = "consulta-general"
	ServiceBlanqueamiento ServiceType = "blanqueamiento"
	ServiceExtraccion     ServiceType = "extraccion"
	ServiceOrtodoncia     ServiceType = "ortodoncia"
	ServiceEndodoncia     ServiceType = "endodoncia"
)

var serviceDisplayNames = map[ServiceType]string{
	ServiceLimpieza:       "Limpieza dental",
	ServiceConsulta:       "Consulta general",
	ServiceBlanqueamiento: "Blanqueamiento",
	ServiceExtraccion:     "Extracción",
	ServiceOrtodoncia:     "Ortodoncia",
	ServiceEndodoncia:     "Endodoncia",
}

// IsValidService reports whether s is one of the fixed clinic services.
func IsValidService(s ServiceType) bool {
	_, ok := serviceDisplayNames[s]
	return ok
}

// DisplayName returns the human-readable service name used in calendar
// events and SMS confirmations.
func (s ServiceType) DisplayName() string {
	if name, ok := serviceDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// IsValidSlot reports whether slot is one of the eight bookable times.
func IsValidSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Phone           string
	Service         ServiceType
	Date            time.Time // date only; the time-of-day lives in Slot
	Slot            string    // "HH:MM", one of Slots
	Status          Status
	CalendarEventID *string // set only if the calendar integration succeeded
	CreatedAt       time.Time
}

// SlotRef is a (date, slot) pair, the unit of availability.
type SlotRef struct {
	Date time.Time
	Slot string
}

// Draft is a fully validated booking request ready to be reserved.
type Draft struct {
	Name    string
	Email   string
	Phone   string
	Service ServiceType
	Date    time.Time
	Slot    string
}

// StartTime resolves the appointment's wall-clock start in the clinic's
// time zone.
func (a *Appointment) StartTime(loc *time.Location) time.Time {
	return slotStart(a.Date, a.Slot, loc)
}

func slotStart(date time.Time, slot string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
