package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock supplies "now". Slot generation and join gating take it as a
// dependency so tests can pin the instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Location resolves the IANA name of the schedule timezone, the single zone
// in which weekly availability is interpreted. Empty or unknown names yield UTC.
func Location(timezone string) *time.Location {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WallClock is a time of day without a date, as doctors publish it ("09:30").
type WallClock struct {
	Hour   int
	Minute int
}

// ParseWallClock parses a 24h "HH:MM" string.
func ParseWallClock(raw string) (WallClock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return WallClock{}, fmt.Errorf("scheduling: invalid wall clock %q, want HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return WallClock{}, fmt.Errorf("scheduling: invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return WallClock{}, fmt.Errorf("scheduling: invalid minute in %q", raw)
	}
	return WallClock{Hour: hour, Minute: minute}, nil
}

// Minutes returns minutes since midnight.
func (w WallClock) Minutes() int { return w.Hour*60 + w.Minute }

func (w WallClock) String() string { return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute) }

// On anchors the wall clock to the calendar date of day as seen in loc.
func (w WallClock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, w.Hour, w.Minute, 0, 0, loc)
}

// DayStart returns local midnight of t's calendar date in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays moves n calendar days, keeping midnight stable across DST changes.
func AddDays(t time.Time, n int, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, loc)
}

// DateKey formats the calendar date as 2006-01-02.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// DayLabel formats a date for display, e.g. "Monday, March 3".
func DayLabel(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Monday, January 2")
}

// SpanLabel formats a slot for display, e.g. "9:00 AM - 9:30 AM".
func SpanLabel(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("3:04 PM") + " - " + end.In(loc).Format("3:04 PM")
}
