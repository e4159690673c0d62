package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the slice of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db db
}

func NewPgRepository(db db) *PgRepository {
	return &PgRepository{db: db}
}

var _ Repository = (*PgRepository)(nil)

const appointmentColumns = `id, name, email, phone, service, date, slot, status, calendar_event_id, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var eventID *string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.Service,
		&a.Date,
		&a.Slot,
		&a.Status,
		&eventID,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CalendarEventID = eventID
	return &a, nil
}

// isUniqueViolation reports whether err is the partial unique index on
// (date, slot) rejecting a second confirmed appointment.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Reserve inserts the draft as a confirmed appointment. Atomicity of the
// slot invariant comes from the uniq_confirmed_slot index, never from a
// prior read.
func (r *PgRepository) Reserve(ctx context.Context, draft Draft) (*Appointment, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, name, email, phone, service, date, slot, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'confirmed', now())
		RETURNING `+appointmentColumns+`
	`, id, draft.Name, draft.Email, draft.Phone, draft.Service, draft.Date, draft.Slot)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// Cancel transitions the appointment to cancelled. Cancelling an already
// cancelled appointment is not an error; the row is returned as-is.
func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1
		  AND status <> 'cancelled'
		RETURNING `+appointmentColumns+`
	`, id)

	appt, err := scanAppointment(row)
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	// No row matched: either the id is unknown or the appointment was
	// already cancelled. The read distinguishes the two.
	return r.GetByID(ctx, id)
}

func (r *PgRepository) AttachCalendarRef(ctx context.Context, id uuid.UUID, eventID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET calendar_event_id = $2
		WHERE id = $1
	`, id, eventID)
	if err != nil {
		return fmt.Errorf("attach calendar ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListOccupiedSlots(ctx context.Context) ([]SlotRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, slot
		FROM appointments
		WHERE status = 'confirmed'
		  AND date >= CURRENT_DATE
		ORDER BY date, slot
	`)
	if err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}
	defer rows.Close()

	var result []SlotRef
	for rows.Next() {
		var ref SlotRef
		if err := rows.Scan(&ref.Date, &ref.Slot); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY date, slot
	`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
