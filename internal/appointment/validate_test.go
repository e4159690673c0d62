package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("CST", -6*60*60)

func testNow() time.Time {
	// A Tuesday, mid-morning clinic time.
	return time.Date(2026, 3, 10, 10, 30, 0, 0, testLoc)
}

func validRequest() BookingRequest {
	return BookingRequest{
		Name:    "Ana Lopez",
		Email:   "ana@example.com",
		Phone:   "+50370001111",
		Service: "limpieza-dental",
		Date:    "2026-03-11",
		Slot:    "09:00",
	}
}

func fieldNames(verr *ValidationError) []string {
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestValidateBookingAccepts(t *testing.T) {
	draft, verr := ValidateBooking(validRequest(), testLoc, testNow())
	require.Nil(t, verr)

	assert.Equal(t, "Ana Lopez", draft.Name)
	assert.Equal(t, "ana@example.com", draft.Email)
	assert.Equal(t, "+50370001111", draft.Phone)
	assert.Equal(t, ServiceLimpieza, draft.Service)
	assert.Equal(t, "09:00", draft.Slot)
	assert.Equal(t, 2026, draft.Date.Year())
}

func TestValidateBookingNormalizes(t *testing.T) {
	req := validRequest()
	req.Name = "  Ana Lopez  "
	req.Email = "  ANA@Example.COM "

	draft, verr := ValidateBooking(req, testLoc, testNow())
	require.Nil(t, verr)

	assert.Equal(t, "Ana Lopez", draft.Name)
	assert.Equal(t, "ana@example.com", draft.Email)
}

func TestValidateBookingToday(t *testing.T) {
	req := validRequest()
	req.Date = "2026-03-10" // same day booking is allowed

	_, verr := ValidateBooking(req, testLoc, testNow())
	require.Nil(t, verr)
}

func TestValidateBookingRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BookingRequest)
		field  string
	}{
		{"name too short", func(r *BookingRequest) { r.Name = "A" }, "name"},
		{"name only spaces", func(r *BookingRequest) { r.Name = "   " }, "name"},
		{"bad email", func(r *BookingRequest) { r.Email = "not-an-email" }, "email"},
		{"email with display name", func(r *BookingRequest) { r.Email = "Ana <ana@example.com>" }, "email"},
		{"phone wrong prefix", func(r *BookingRequest) { r.Phone = "+10370001111" }, "phone"},
		{"phone too short", func(r *BookingRequest) { r.Phone = "+5037000111" }, "phone"},
		{"phone without plus", func(r *BookingRequest) { r.Phone = "50370001111" }, "phone"},
		{"unknown service", func(r *BookingRequest) { r.Service = "cirugia-plastica" }, "serviceType"},
		{"past date", func(r *BookingRequest) { r.Date = "2026-03-09" }, "date"},
		{"garbage date", func(r *BookingRequest) { r.Date = "tomorrow" }, "date"},
		{"impossible date", func(r *BookingRequest) { r.Date = "2026-02-30" }, "date"},
		{"slot not offered", func(r *BookingRequest) { r.Slot = "12:00" }, "slot"},
		{"slot bad format", func(r *BookingRequest) { r.Slot = "9am" }, "slot"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, verr := ValidateBooking(req, testLoc, testNow())
			require.NotNil(t, verr)
			assert.Contains(t, fieldNames(verr), tc.field)
		})
	}
}

func TestValidateBookingCollectsAllFailures(t *testing.T) {
	req := BookingRequest{
		Name:    "X",
		Email:   "nope",
		Phone:   "12345",
		Service: "nails",
		Date:    "1999-01-01",
		Slot:    "23:00",
	}

	_, verr := ValidateBooking(req, testLoc, testNow())
	require.NotNil(t, verr)

	names := fieldNames(verr)
	assert.ElementsMatch(t, []string{"name", "email", "phone", "serviceType", "date", "slot"}, names)
	assert.ErrorContains(t, verr, "invalid booking request")
}

func TestServiceDisplayNames(t *testing.T) {
	assert.Equal(t, "Limpieza dental", ServiceLimpieza.DisplayName())
	assert.Equal(t, "desconocido", ServiceType("desconocido").DisplayName())
}

func TestSlotEnumeration(t *testing.T) {
	require.Len(t, Slots, 8)
	assert.True(t, IsValidSlot("08:00"))
	assert.True(t, IsValidSlot("16:00"))
	assert.False(t, IsValidSlot("12:00"))
	assert.False(t, IsValidSlot(""))
}
