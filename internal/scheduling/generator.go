package scheduling

import (
	"time"
)

const (
	// DefaultSlotLength is the bookable consultation span.
	DefaultSlotLength = 30 * time.Minute
	// DefaultWindowDays is how far ahead patients can book, today included.
	DefaultWindowDays = 7
)

// Slot is a free, bookable span. It is derived on every query and never stored.
type Slot struct {
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DayLabel     string    `json:"day"`
	DisplayLabel string    `json:"formatted"`
}

// Interval returns the slot span.
func (s Slot) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// DaySlots groups one calendar day's free slots in chronological order.
type DaySlots struct {
	Date        string `json:"date"`
	DisplayDate string `json:"display_date"`
	Slots       []Slot `json:"slots"`
}

// Generator computes free slots from weekly availability minus booked spans.
// It is pure: same inputs, same output, no I/O.
type Generator struct {
	SlotLength time.Duration
	WindowDays int
	Location   *time.Location
}

// NewGenerator returns a generator with 30-minute slots over a 7-day window.
func NewGenerator(loc *time.Location) Generator {
	if loc == nil {
		loc = time.UTC
	}
	return Generator{
		SlotLength: DefaultSlotLength,
		WindowDays: DefaultWindowDays,
		Location:   loc,
	}
}

func (g Generator) normalized() Generator {
	if g.SlotLength <= 0 {
		g.SlotLength = DefaultSlotLength
	}
	if g.WindowDays <= 0 {
		g.WindowDays = DefaultWindowDays
	}
	if g.Location == nil {
		g.Location = time.UTC
	}
	return g
}

// Window returns the calendar span the generator covers for now: local
// midnight today through local midnight after the last day.
func (g Generator) Window(now time.Time) Interval {
	g = g.normalized()
	return Interval{
		Start: DayStart(now, g.Location),
		End:   AddDays(now, g.WindowDays, g.Location),
	}
}

// Generate returns one entry per calendar day in the window starting at now's
// date. Days without an active availability record carry no slots. booked holds
// the spans of SCHEDULED appointments for the same doctor.
//
// Active records are validated first; a malformed one fails the whole call
// with a configuration error.
func (g Generator) Generate(now time.Time, availability []WeeklyAvailability, booked []Interval) ([]DaySlots, error) {
	g = g.normalized()
	for _, a := range availability {
		if !a.IsActive {
			continue
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}

	days := make([]DaySlots, 0, g.WindowDays)
	for i := 0; i < g.WindowDays; i++ {
		day := AddDays(now, i, g.Location)
		entry := DaySlots{
			Date:        DateKey(day, g.Location),
			DisplayDate: DayLabel(day, g.Location),
			Slots:       []Slot{},
		}
		record, ok := ActiveFor(availability, day.Weekday())
		if ok {
			window, err := record.Window(day, g.Location)
			if err != nil {
				return nil, err
			}
			entry.Slots = g.walk(window, now, booked)
		}
		days = append(days, entry)
	}
	return days, nil
}

func (g Generator) walk(window Interval, now time.Time, booked []Interval) []Slot {
	slots := []Slot{}
	for current := window.Start; !current.Add(g.SlotLength).After(window.End); current = current.Add(g.SlotLength) {
		candidate := Interval{Start: current, End: current.Add(g.SlotLength)}
		if candidate.Start.Before(now) {
			continue
		}
		if candidate.OverlapsAny(booked) {
			continue
		}
		slots = append(slots, Slot{
			StartTime:    candidate.Start.UTC(),
			EndTime:      candidate.End.UTC(),
			DayLabel:     DayLabel(candidate.Start, g.Location),
			DisplayLabel: SpanLabel(candidate.Start, candidate.End, g.Location),
		})
	}
	return slots
}
