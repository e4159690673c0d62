package appointment

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// BookingRequest is the raw client input before validation.
type BookingRequest struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Date    string // YYYY-MM-DD
	Slot    string // HH:MM
}

// FieldError names one offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failing field of a booking request so
// the client can surface all of them at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("invalid booking request: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Salvadoran mobile/landline numbers: country code plus eight digits.
var phonePattern = regexp.MustCompile(`^\+503\d{8}$`)

const dateLayout = "2006-01-02"

// ValidateBooking checks every rule and returns a Draft only when all
// pass. The date floor is evaluated against now in the clinic's zone,
// not whatever the client claims.
func ValidateBooking(req BookingRequest, loc *time.Location, now time.Time) (Draft, *ValidationError) {
	verr := &ValidationError{}

	name := strings.TrimSpace(req.Name)
	if n := len([]rune(name)); n < 2 || n > 100 {
		verr.add("name", "name must be between 2 and 100 characters")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.add("email", "email address is not valid")
	}

	phone := strings.TrimSpace(req.Phone)
	if !phonePattern.MatchString(phone) {
		verr.add("phone", "phone must match +503 followed by 8 digits")
	}

	service := ServiceType(strings.TrimSpace(req.Service))
	if !IsValidService(service) {
		verr.add("serviceType", "unknown service type")
	}

	var date time.Time
	if d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.Date), loc); err != nil {
		verr.add("date", "date must be a valid YYYY-MM-DD calendar date")
	} else {
		date = d
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		if date.Before(today) {
			verr.add("date", "date must not be in the past")
		}
	}

	slot := strings.TrimSpace(req.Slot)
	if !IsValidSlot(slot) {
		verr.add("slot", "slot must be one of the clinic's bookable times")
	}

	if len(verr.Fields) > 0 {
		return Draft{}, verr
	}

	return Draft{
		Name:    name,
		Email:   email,
		Phone:   phone,
		Service: service,
		Date:    date,
		Slot:    slot,
	}, nil
}
