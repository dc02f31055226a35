package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUsers reads the users table.
type PostgresUsers struct {
	db DB
}

func NewPostgresUsers(db DB) *PostgresUsers {
	if db == nil {
		panic("directory: db required")
	}
	return &PostgresUsers{db: db}
}

func (s *PostgresUsers) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var (
		u      User
		role   string
		status string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, role, verification_status
		FROM users
		WHERE id = $1`, id,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &role, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("directory: get user: %w", err)
	}
	u.Role = identity.Role(role)
	u.VerificationStatus = VerificationStatus(status)
	return u, nil
}

// PostgresAvailability persists weekly_availability rows.
type PostgresAvailability struct {
	db DB
}

func NewPostgresAvailability(db DB) *PostgresAvailability {
	if db == nil {
		panic("directory: db required")
	}
	return &PostgresAvailability{db: db}
}

const availabilityColumns = `id, doctor_id, day_of_week, start_time, end_time, is_active`

func (s *PostgresAvailability) ActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM weekly_availability
		WHERE doctor_id = $1 AND is_active
		ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("directory: active availability: %w", err)
	}
	defer rows.Close()
	return scanAvailability(rows)
}

func (s *PostgresAvailability) List(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM weekly_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("directory: list availability: %w", err)
	}
	defer rows.Close()
	return scanAvailability(rows)
}

// Set stores the doctor's single active window for rec.DayOfWeek, replacing
// the previous one.
func (s *PostgresAvailability) Set(ctx context.Context, rec scheduling.WeeklyAvailability) (scheduling.WeeklyAvailability, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.IsActive = true
	err := s.db.QueryRow(ctx, `
		INSERT INTO weekly_availability (id, doctor_id, day_of_week, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (doctor_id, day_of_week) WHERE is_active
		DO UPDATE SET start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			updated_at = now()
		RETURNING id`,
		rec.ID, rec.DoctorID, int(rec.DayOfWeek), rec.StartTime, rec.EndTime,
	).Scan(&rec.ID)
	if err != nil {
		return scheduling.WeeklyAvailability{}, fmt.Errorf("directory: set availability: %w", err)
	}
	return rec, nil
}

func (s *PostgresAvailability) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM weekly_availability WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return fmt.Errorf("directory: delete availability: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrAvailabilityNotFound
	}
	return nil
}

func scanAvailability(rows pgx.Rows) ([]scheduling.WeeklyAvailability, error) {
	var out []scheduling.WeeklyAvailability
	for rows.Next() {
		var (
			rec scheduling.WeeklyAvailability
			day int
		)
		if err := rows.Scan(&rec.ID, &rec.DoctorID, &day, &rec.StartTime, &rec.EndTime, &rec.IsActive); err != nil {
			return nil, fmt.Errorf("directory: scan availability: %w", err)
		}
		rec.DayOfWeek = time.Weekday(day)
		out = append(out, rec)
	}
	return out, rows.Err()
}
