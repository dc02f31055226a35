package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

func TestPostgresUsersGetUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresUsers(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, first_name, last_name, email, role, verification_status").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "email", "role", "verification_status"}).
			AddRow(id, "Grace", "Hopper", "grace@example.com", "DOCTOR", "VERIFIED"))

	user, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", user.FullName())
	assert.Equal(t, identity.RoleDoctor, user.Role)
	assert.True(t, user.Bookable())

	mock.ExpectQuery("SELECT id, first_name").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = store.GetUser(context.Background(), id)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAvailabilityActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresAvailability(mock)
	doctorID := uuid.New()
	recID := uuid.New()

	mock.ExpectQuery("SELECT id, doctor_id, day_of_week, start_time, end_time, is_active").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doctor_id", "day_of_week", "start_time", "end_time", "is_active"}).
			AddRow(recID, doctorID, 1, "09:00", "17:00", true))

	records, err := store.ActiveAvailability(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Monday, records[0].DayOfWeek)
	assert.Equal(t, "09:00", records[0].StartTime)
	assert.True(t, records[0].IsActive)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAvailabilitySetUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresAvailability(mock)
	doctorID := uuid.New()
	existing := uuid.New()

	mock.ExpectQuery("INSERT INTO weekly_availability").
		WithArgs(pgxmock.AnyArg(), doctorID, 2, "10:00", "12:00").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existing))

	saved, err := store.Set(context.Background(), scheduling.WeeklyAvailability{
		DoctorID:  doctorID,
		DayOfWeek: time.Tuesday,
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, existing, saved.ID, "conflicting weekday keeps the existing row id")
	assert.True(t, saved.IsActive)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAvailabilityDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresAvailability(mock)
	doctorID, id := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM weekly_availability").
		WithArgs(id, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, store.Delete(context.Background(), doctorID, id))

	mock.ExpectExec("DELETE FROM weekly_availability").
		WithArgs(id, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, store.Delete(context.Background(), doctorID, id), apperr.ErrAvailabilityNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
