package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sonrisadental/booking-api/internal/appointment"
)

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := svc.Book(r.Context(), appointment.BookingRequest{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Service: req.ServiceType,
			Date:    req.Date,
			Slot:    req.Slot,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		appt := result.Appointment
		writeJSON(w, http.StatusCreated, BookingResponse{
			ID:          appt.ID,
			Name:        appt.Name,
			Date:        appt.Date.Format(dateLayout),
			Slot:        appt.Slot,
			ServiceType: string(appt.Service),
			Status:      string(appt.Status),
			Integrations: IntegrationStatus{
				Calendar: result.CalendarOK,
				SMS:      result.SMSOK,
			},
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	var verr *appointment.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "the requested date and time is already booked")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create the appointment")
	}
}

func listOccupiedSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refs, err := svc.ListOccupiedSlots(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load occupied slots")
			return
		}

		resp := make([]OccupiedSlotResponse, 0, len(refs))
		for _, ref := range refs {
			resp = append(resp, OccupiedSlotResponse{
				Date: ref.Date.Format(dateLayout),
				Slot: ref.Slot,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListAppointments(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not list appointments")
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, toAppointmentResponse(a))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", "no appointment with that id")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not load the appointment")
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", "no appointment with that id")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "could not cancel the appointment")
			return
		}

		writeJSON(w, http.StatusOK, CancelResponse{
			ID:     appt.ID,
			Status: string(appt.Status),
		})
	}
}
