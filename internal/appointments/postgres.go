package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// DB abstracts the pgx query interface so a pool or a transaction can back the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, doctor_id, patient_id, start_time, end_time, status, description,
	video_session_id, video_session_token, cancel_reason, diagnosis, prescription, notes,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartTime, &a.EndTime, &status, &a.Description,
		&a.VideoSessionID, &a.VideoSessionToken, &a.CancelReason, &a.Diagnosis, &a.Prescription, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Appointment{}, err
	}
	a.Status = Status(status)
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, apperr.ErrAppointmentNotFound
		}
		return Appointment{}, fmt.Errorf("appointments: get: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) HasScheduledOverlap(ctx context.Context, doctorID uuid.UUID, span scheduling.Interval) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status = 'SCHEDULED'
			  AND start_time < $3
			  AND end_time > $2
		)`, doctorID, span.Start.UTC(), span.End.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: overlap check: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, a Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, start_time, end_time, status, description,
			video_session_id, video_session_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		a.ID, a.DoctorID, a.PatientID, a.StartTime.UTC(), a.EndTime.UTC(), string(a.Status), a.Description,
		a.VideoSessionID, a.VideoSessionToken, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetToken(ctx context.Context, id uuid.UUID, token string, at time.Time) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET video_session_token = $2, updated_at = $3
		WHERE id = $1`, id, token, at.UTC())
	if err != nil {
		return fmt.Errorf("appointments: set token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrAppointmentNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) (Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, cancel_reason = $4, diagnosis = $5, prescription = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND status = $3
		RETURNING `+appointmentColumns,
		id, string(change.To), string(change.From), change.CancelReason,
		change.Notes.Diagnosis, change.Notes.Prescription, change.Notes.Notes, change.At.UTC(),
	))
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, fmt.Errorf("appointments: update status: %w", err)
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return Appointment{}, getErr
	}
	return Appointment{}, apperr.ErrInvalidTransition
}

func (r *PostgresRepository) ScheduledIntervals(ctx context.Context, doctorID uuid.UUID, window scheduling.Interval) ([]scheduling.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'SCHEDULED'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time`, doctorID, window.Start.UTC(), window.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("appointments: scheduled intervals: %w", err)
	}
	defer rows.Close()

	var out []scheduling.Interval
	for rows.Next() {
		var iv scheduling.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("appointments: scan interval: %w", err)
		}
		out = append(out, iv.UTC())
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status Status, limit, offset int) ([]Appointment, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM appointments WHERE doctor_id = $1 AND status = $2`,
		doctorID, string(status),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("appointments: count for doctor: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND status = $2
		ORDER BY start_time ASC
		LIMIT $3 OFFSET $4`, doctorID, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("appointments: list for doctor: %w", err)
	}
	defer rows.Close()

	out := make([]Appointment, 0, limit)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	return out, total, rows.Err()
}
