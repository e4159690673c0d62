package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonrisadental/booking-api/internal/calendar"
)

// memRepo enforces the slot invariant under a mutex so the concurrency
// properties of the service can be tested without a database.
type memRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*Appointment)}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (r *memRepo) Reserve(ctx context.Context, draft Draft) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.Status == StatusConfirmed && dateKey(a.Date) == dateKey(draft.Date) && a.Slot == draft.Slot {
			return nil, ErrSlotTaken
		}
	}

	appt := &Appointment{
		ID:        uuid.New(),
		Name:      draft.Name,
		Email:     draft.Email,
		Phone:     draft.Phone,
		Service:   draft.Service,
		Date:      draft.Date,
		Slot:      draft.Slot,
		Status:    StatusConfirmed,
		CreatedAt: time.Now(),
	}
	r.byID[appt.ID] = appt

	cp := *appt
	return &cp, nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *memRepo) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled
	cp := *appt
	return &cp, nil
}

func (r *memRepo) AttachCalendarRef(ctx context.Context, id uuid.UUID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.CalendarEventID = &eventID
	return nil
}

func (r *memRepo) ListOccupiedSlots(ctx context.Context) ([]SlotRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var refs []SlotRef
	for _, a := range r.byID {
		if a.Status == StatusConfirmed {
			refs = append(refs, SlotRef{Date: a.Date, Slot: a.Slot})
		}
	}
	return refs, nil
}

func (r *memRepo) ListAll(ctx context.Context) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Appointment
	for _, a := range r.byID {
		all = append(all, *a)
	}
	return all, nil
}

type fakeCalendar struct {
	mu         sync.Mutex
	createErr  error
	deleteErr  error
	created    []calendar.Event
	deletedIDs []string
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, ev)
	return "gcal-event-1", nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, eventID)
	return nil
}

type fakeSMS struct {
	mu      sync.Mutex
	sendErr error
	sent    []struct{ to, body string }
}

func (f *fakeSMS) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, struct{ to, body string }{to, body})
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	refs        []SlotRef
	hit         bool
	sets        int
	invalidates int
}

func (f *fakeCache) Get(ctx context.Context) ([]SlotRef, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refs, f.hit
}

func (f *fakeCache) Set(ctx context.Context, refs []SlotRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.refs = refs
}

func (f *fakeCache) Invalidate(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidates++
}

type fixture struct {
	svc   *Service
	repo  *memRepo
	cal   *fakeCalendar
	sms   *fakeSMS
	cache *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:  newMemRepo(),
		cal:   &fakeCalendar{},
		sms:   &fakeSMS{},
		cache: &fakeCache{},
	}

	f.svc = NewService(ServiceConfig{
		Repo:        f.repo,
		Calendar:    f.cal,
		SMS:         f.sms,
		Cache:       f.cache,
		Location:    testLoc,
		ClinicPhone: "+50322505050",
	})
	f.svc.now = testNow

	return f
}

func tomorrowRequest() BookingRequest {
	req := validRequest()
	req.Date = testNow().AddDate(0, 0, 1).Format("2006-01-02")
	return req
}

func TestBookSuccess(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)

	appt := result.Appointment
	require.NotNil(t, appt)
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.True(t, result.CalendarOK)
	assert.True(t, result.SMSOK)

	// Calendar event shape
	require.Len(t, f.cal.created, 1)
	ev := f.cal.created[0]
	assert.Equal(t, "Limpieza dental: Ana Lopez", ev.Summary)
	assert.Equal(t, "ana@example.com", ev.AttendeeEmail)
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	assert.Equal(t, 9, ev.Start.Hour())
	assert.Equal(t, []int64{1440, 60}, ev.ReminderMinutes)

	// Calendar ref was persisted
	stored, err := f.repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CalendarEventID)
	assert.Equal(t, "gcal-event-1", *stored.CalendarEventID)

	// SMS went to the patient with the clinic's cancellation number
	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, "+50370001111", f.sms.sent[0].to)
	assert.Contains(t, f.sms.sent[0].body, "9:00 AM")
	assert.Contains(t, f.sms.sent[0].body, "Limpieza dental")
	assert.Contains(t, f.sms.sent[0].body, "+50322505050")

	assert.Equal(t, 1, f.cache.invalidates)
}

func TestBookSameSlotConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)

	req2 := tomorrowRequest()
	req2.Name = "Carlos Ruiz"
	req2.Email = "carlos@example.com"
	req2.Phone = "+50370002222"

	_, err = f.svc.Book(context.Background(), req2)
	require.ErrorIs(t, err, ErrSlotTaken)

	// Side effects must not fire for the loser.
	assert.Len(t, f.cal.created, 1)
	assert.Len(t, f.sms.sent, 1)
}

func TestBookConcurrentSameSlotSingleWinner(t *testing.T) {
	f := newFixture(t)

	const racers = 16

	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(context.Background(), tomorrowRequest())
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
}

func TestBookIntegrationFailuresAreIndependent(t *testing.T) {
	cases := []struct {
		name       string
		calErr     error
		smsErr     error
		calendarOK bool
		smsOK      bool
	}{
		{"calendar down", errors.New("calendar 500"), nil, false, true},
		{"sms down", nil, errors.New("twilio 500"), true, false},
		{"both down", errors.New("calendar 500"), errors.New("twilio 500"), false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.cal.createErr = tc.calErr
			f.sms.sendErr = tc.smsErr

			result, err := f.svc.Book(context.Background(), tomorrowRequest())
			require.NoError(t, err, "integration failure must never fail the booking")

			assert.Equal(t, tc.calendarOK, result.CalendarOK)
			assert.Equal(t, tc.smsOK, result.SMSOK)

			// The reservation stands regardless.
			stored, err := f.repo.GetByID(context.Background(), result.Appointment.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusConfirmed, stored.Status)
		})
	}
}

func TestBookPastDateRejected(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Date = testNow().AddDate(0, 0, -1).Format("2006-01-02")

	_, err := f.svc.Book(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Fields[0].Field)
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Calendar event cleanup
	assert.Equal(t, []string{"gcal-event-1"}, f.cal.deletedIDs)

	// Slot is bookable again
	rebooked, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)
	assert.NotEqual(t, result.Appointment.ID, rebooked.Appointment.ID)
}

func TestCancelUnknownIDNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelTwiceTolerated(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), result.Appointment.ID)
	require.NoError(t, err)

	again, err := f.svc.Cancel(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
}

func TestCancelSurvivesCalendarDeleteFailure(t *testing.T) {
	f := newFixture(t)
	f.cal.deleteErr = errors.New("calendar 500")

	result, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), result.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestListOccupiedSlotsIncludesReservation(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), tomorrowRequest())
	require.NoError(t, err)

	refs, err := f.svc.ListOccupiedSlots(context.Background())
	require.NoError(t, err)

	require.Len(t, refs, 1)
	assert.Equal(t, result.Appointment.Slot, refs[0].Slot)
	assert.Equal(t, dateKey(result.Appointment.Date), dateKey(refs[0].Date))

	// Miss populated the cache
	assert.Equal(t, 1, f.cache.sets)
}

func TestListOccupiedSlotsServesCacheHit(t *testing.T) {
	f := newFixture(t)
	f.cache.hit = true
	f.cache.refs = []SlotRef{{Date: testNow(), Slot: "13:00"}}

	refs, err := f.svc.ListOccupiedSlots(context.Background())
	require.NoError(t, err)

	require.Len(t, refs, 1)
	assert.Equal(t, "13:00", refs[0].Slot)
	assert.Equal(t, 0, f.cache.sets)
}

func TestBookingScenarioAnaLopez(t *testing.T) {
	f := newFixture(t)

	req := BookingRequest{
		Name:    "Ana Lopez",
		Email:   "ana@example.com",
		Phone:   "+50370001111",
		Service: "limpieza-dental",
		Date:    testNow().AddDate(0, 0, 1).Format("2006-01-02"),
		Slot:    "09:00",
	}

	result, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.Appointment.ID)
	assert.Equal(t, StatusConfirmed, result.Appointment.Status)

	_, err = f.svc.Book(context.Background(), req)
	require.ErrorIs(t, err, ErrSlotTaken)
}
