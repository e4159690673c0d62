package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/sonrisadental/booking-api/internal/appointment"
)

type CreateAppointmentRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ServiceType string `json:"serviceType"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
}

type IntegrationStatus struct {
	Calendar bool `json:"calendar"`
	SMS      bool `json:"sms"`
}

type BookingResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Date         string            `json:"date"`
	Slot         string            `json:"slot"`
	ServiceType  string            `json:"serviceType"`
	Status       string            `json:"status"`
	Integrations IntegrationStatus `json:"integrations"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	ServiceType string    `json:"serviceType"`
	Date        string    `json:"date"`
	Slot        string    `json:"slot"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type OccupiedSlotResponse struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

type CancelResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type ErrorResponse struct {
	Error   string                   `json:"error"`
	Details string                   `json:"details,omitempty"`
	Fields  []appointment.FieldError `json:"fields,omitempty"`
}

const dateLayout = "2006-01-02"

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		ServiceType: string(a.Service),
		Date:        a.Date.Format(dateLayout),
		Slot:        a.Slot,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}
