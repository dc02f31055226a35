package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
)

// WeeklyAvailability is a recurring open window a doctor publishes for one weekday.
type WeeklyAvailability struct {
	ID        uuid.UUID    `json:"id"`
	DoctorID  uuid.UUID    `json:"doctor_id"`
	DayOfWeek time.Weekday `json:"day_of_week"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	IsActive  bool         `json:"is_active"`
}

// Validate reports malformed rows as configuration errors for the doctor to fix.
func (a WeeklyAvailability) Validate() error {
	if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
		return apperr.ErrInvalidAvailability.WithMessage(fmt.Sprintf("day_of_week %d out of range 0-6", a.DayOfWeek))
	}
	start, end, err := a.bounds()
	if err != nil {
		return err
	}
	if start.Minutes() >= end.Minutes() {
		return apperr.ErrInvalidAvailability.WithMessage(fmt.Sprintf("start_time %s must be before end_time %s", start, end))
	}
	return nil
}

// Window anchors the record to the calendar date of day.
func (a WeeklyAvailability) Window(day time.Time, loc *time.Location) (Interval, error) {
	if err := a.Validate(); err != nil {
		return Interval{}, err
	}
	start, end, _ := a.bounds()
	return Interval{Start: start.On(day, loc), End: end.On(day, loc)}, nil
}

func (a WeeklyAvailability) bounds() (WallClock, WallClock, error) {
	start, err := ParseWallClock(a.StartTime)
	if err != nil {
		return WallClock{}, WallClock{}, apperr.ErrInvalidAvailability.WithMessage("start_time must be HH:MM").Wrap(err)
	}
	end, err := ParseWallClock(a.EndTime)
	if err != nil {
		return WallClock{}, WallClock{}, apperr.ErrInvalidAvailability.WithMessage("end_time must be HH:MM").Wrap(err)
	}
	return start, end, nil
}

// ActiveFor returns the first active record for day, or false when the doctor
// does not work that weekday.
func ActiveFor(records []WeeklyAvailability, day time.Weekday) (WeeklyAvailability, bool) {
	for _, r := range records {
		if r.IsActive && r.DayOfWeek == day {
			return r, true
		}
	}
	return WeeklyAvailability{}, false
}
