package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sonrisadental/booking-api/internal/calendar"
	"github.com/sonrisadental/booking-api/internal/metrics"
	"github.com/sonrisadental/booking-api/internal/sms"
)

// SlotCache is the advisory occupied-slot cache. A miss or failure just
// means a database read.
type SlotCache interface {
	Get(ctx context.Context) ([]SlotRef, bool)
	Set(ctx context.Context, refs []SlotRef)
	Invalidate(ctx context.Context)
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context) ([]SlotRef, bool) { return nil, false }
func (noopCache) Set(ctx context.Context, refs []SlotRef)   {}
func (noopCache) Invalidate(ctx context.Context)            {}

// BookingResult is a committed reservation plus the outcome of each
// post-reservation integration.
type BookingResult struct {
	Appointment *Appointment
	CalendarOK  bool
	SMSOK       bool
}

type Service struct {
	repo     Repository
	calendar calendar.Client
	sms      sms.Sender
	cache    SlotCache
	metrics  *metrics.BookingMetrics
	logger   *zap.Logger

	loc                *time.Location
	clinicPhone        string
	integrationTimeout time.Duration

	now func() time.Time
}

type ServiceConfig struct {
	Repo     Repository
	Calendar calendar.Client
	SMS      sms.Sender
	Cache    SlotCache
	Metrics  *metrics.BookingMetrics
	Logger   *zap.Logger

	Location           *time.Location
	ClinicPhone        string
	IntegrationTimeout time.Duration
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Calendar == nil {
		cfg.Calendar = calendar.Noop{}
	}
	if cfg.SMS == nil {
		cfg.SMS = sms.Noop{}
	}
	if cfg.Cache == nil {
		cfg.Cache = noopCache{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.IntegrationTimeout <= 0 {
		cfg.IntegrationTimeout = 5 * time.Second
	}

	return &Service{
		repo:               cfg.Repo,
		calendar:           cfg.Calendar,
		sms:                cfg.SMS,
		cache:              cfg.Cache,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		loc:                cfg.Location,
		clinicPhone:        cfg.ClinicPhone,
		integrationTimeout: cfg.IntegrationTimeout,
		now:                time.Now,
	}
}

// Book validates the request, reserves the slot, and fires the calendar
// and SMS integrations. The reservation is never rolled back when an
// integration fails; the result flags carry each outcome separately.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	draft, verr := ValidateBooking(req, s.loc, s.now())
	if verr != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, verr
	}

	appt, err := s.repo.Reserve(ctx, draft)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("conflict")
			return nil, ErrSlotTaken
		}
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("reserve: %w", err)
	}

	s.metrics.ObserveBooking("booked")
	s.cache.Invalidate(ctx)

	result := &BookingResult{Appointment: appt}

	// The reservation has committed; the side effects must not inherit
	// the request's cancellation. Each gets its own bounded budget.
	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		result.CalendarOK = s.createCalendarEvent(base, appt)
	}()

	go func() {
		defer wg.Done()
		result.SMSOK = s.sendConfirmationSMS(base, appt)
	}()

	wg.Wait()

	return result, nil
}

func (s *Service) createCalendarEvent(ctx context.Context, appt *Appointment) bool {
	ctx, cancel := context.WithTimeout(ctx, s.integrationTimeout)
	defer cancel()

	start := appt.StartTime(s.loc)
	ev := calendar.Event{
		Summary: fmt.Sprintf("%s: %s", appt.Service.DisplayName(), appt.Name),
		Description: fmt.Sprintf("Paciente: %s\nTel: %s\nEmail: %s",
			appt.Name, appt.Phone, appt.Email),
		Start:           start,
		End:             start.Add(time.Hour),
		AttendeeEmail:   appt.Email,
		ReminderMinutes: []int64{24 * 60, 60},
	}

	eventID, err := s.calendar.CreateEvent(ctx, ev)
	if err != nil {
		s.metrics.ObserveIntegration("calendar", false)
		s.logger.Warn("calendar event creation failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
		return false
	}

	s.metrics.ObserveIntegration("calendar", true)

	if eventID != "" {
		if err := s.repo.AttachCalendarRef(ctx, appt.ID, eventID); err != nil {
			s.logger.Warn("failed to attach calendar ref",
				zap.String("appointment_id", appt.ID.String()),
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		} else {
			id := eventID
			appt.CalendarEventID = &id
		}
	}

	return true
}

func (s *Service) sendConfirmationSMS(ctx context.Context, appt *Appointment) bool {
	ctx, cancel := context.WithTimeout(ctx, s.integrationTimeout)
	defer cancel()

	body := fmt.Sprintf(
		"Su cita de %s esta confirmada para el %s a las %s. Para cancelar llame al %s.",
		appt.Service.DisplayName(),
		appt.Date.Format("02/01/2006"),
		formatSlot12h(appt.Slot),
		s.clinicPhone,
	)

	if err := s.sms.Send(ctx, appt.Phone, body); err != nil {
		s.metrics.ObserveIntegration("sms", false)
		s.logger.Warn("confirmation sms failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("to", appt.Phone),
			zap.Error(err),
		)
		return false
	}

	s.metrics.ObserveIntegration("sms", true)
	return true
}

// Cancel frees the appointment's slot. If a calendar event was created
// for it, deletion is attempted best-effort.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.metrics.ObserveCancellation("not_found")
			return nil, ErrAppointmentNotFound
		}
		s.metrics.ObserveCancellation("error")
		return nil, fmt.Errorf("cancel: %w", err)
	}

	s.metrics.ObserveCancellation("cancelled")
	s.cache.Invalidate(ctx)

	if appt.CalendarEventID != nil && *appt.CalendarEventID != "" {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.integrationTimeout)
		defer cancel()

		if err := s.calendar.DeleteEvent(delCtx, *appt.CalendarEventID); err != nil {
			s.logger.Warn("calendar event deletion failed",
				zap.String("appointment_id", appt.ID.String()),
				zap.String("event_id", *appt.CalendarEventID),
				zap.Error(err),
			)
		}
	}

	return appt, nil
}

// ListOccupiedSlots serves the advisory availability list, preferring
// the short-lived cache.
func (s *Service) ListOccupiedSlots(ctx context.Context) ([]SlotRef, error) {
	if refs, ok := s.cache.Get(ctx); ok {
		return refs, nil
	}

	refs, err := s.repo.ListOccupiedSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}

	s.cache.Set(ctx, refs)
	return refs, nil
}

// ListAppointments returns every appointment for administrative review.
func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// GetAppointment loads a single appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func formatSlot12h(slot string) string {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}
