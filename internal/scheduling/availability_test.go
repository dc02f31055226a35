package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
)

func TestWeeklyAvailabilityValidate(t *testing.T) {
	base := WeeklyAvailability{ID: uuid.New(), DoctorID: uuid.New(), DayOfWeek: time.Tuesday, StartTime: "09:00", EndTime: "12:30", IsActive: true}
	require.NoError(t, base.Validate())

	cases := map[string]func(a *WeeklyAvailability){
		"start equals end":  func(a *WeeklyAvailability) { a.EndTime = "09:00" },
		"start after end":   func(a *WeeklyAvailability) { a.StartTime = "13:00" },
		"malformed start":   func(a *WeeklyAvailability) { a.StartTime = "9am" },
		"hour out of range": func(a *WeeklyAvailability) { a.EndTime = "24:00" },
		"single digit mins": func(a *WeeklyAvailability) { a.EndTime = "12:5" },
		"weekday too large": func(a *WeeklyAvailability) { a.DayOfWeek = 7 },
		"weekday negative":  func(a *WeeklyAvailability) { a.DayOfWeek = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := base
			mutate(&a)
			err := a.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrInvalidAvailability)
			assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
		})
	}
}

func TestWeeklyAvailabilityWindow(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	a := WeeklyAvailability{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "10:30", IsActive: true}

	w, err := a.Window(time.Date(2026, time.October, 19, 3, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2026, time.October, 19, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, 90*time.Minute, w.Duration())
}

func TestActiveForSkipsInactiveRows(t *testing.T) {
	records := []WeeklyAvailability{
		{DayOfWeek: time.Monday, StartTime: "08:00", EndTime: "09:00", IsActive: false},
		{DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "11:00", IsActive: true},
		{DayOfWeek: time.Monday, StartTime: "12:00", EndTime: "13:00", IsActive: true},
	}
	got, ok := ActiveFor(records, time.Monday)
	require.True(t, ok)
	assert.Equal(t, "10:00", got.StartTime)

	_, ok = ActiveFor(records, time.Sunday)
	assert.False(t, ok)
}
