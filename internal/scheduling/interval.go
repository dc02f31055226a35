package scheduling

import (
	"fmt"
	"time"
)

// Interval is the half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval returns an error unless start is strictly before end.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, fmt.Errorf("scheduling: interval end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return iv, nil
}

func (iv Interval) Valid() bool { return iv.Start.Before(iv.End) }

// Overlaps reports whether the spans share any instant. Touching spans
// ([09:00,09:30) and [09:30,10:00)) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// UTC normalizes both bounds.
func (iv Interval) UTC() Interval {
	return Interval{Start: iv.Start.UTC(), End: iv.End.UTC()}
}

// OverlapsAny reports whether iv overlaps any of others.
func (iv Interval) OverlapsAny(others []Interval) bool {
	for _, o := range others {
		if iv.Overlaps(o) {
			return true
		}
	}
	return false
}
