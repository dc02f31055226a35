package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
)

type stubDoctors struct{ bookable map[uuid.UUID]bool }

func (s stubDoctors) EnsureBookable(_ context.Context, id uuid.UUID) error {
	if !s.bookable[id] {
		return apperr.ErrDoctorUnavailable
	}
	return nil
}

type stubAvailability struct {
	records []WeeklyAvailability
	err     error
}

func (s stubAvailability) ActiveAvailability(context.Context, uuid.UUID) ([]WeeklyAvailability, error) {
	return s.records, s.err
}

type stubBooked struct {
	intervals  []Interval
	lastWindow Interval
	calls      int
}

func (s *stubBooked) ScheduledIntervals(_ context.Context, _ uuid.UUID, window Interval) ([]Interval, error) {
	s.calls++
	s.lastWindow = window
	return s.intervals, nil
}

func newTestService(doctorID uuid.UUID, avail []WeeklyAvailability, booked *stubBooked) *SlotService {
	return NewSlotService(
		stubDoctors{bookable: map[uuid.UUID]bool{doctorID: true}},
		stubAvailability{records: avail},
		booked,
		NewGenerator(time.UTC),
		FixedClock{T: monday(8, 0)},
		nil,
		nil,
	)
}

func TestSlotService_ReturnsFreeSlots(t *testing.T) {
	doctorID := uuid.New()
	booked := &stubBooked{intervals: []Interval{{Start: monday(10, 0), End: monday(10, 30)}}}
	svc := newTestService(doctorID, mondayNineToFive(doctorID), booked)

	days, err := svc.GetAvailableSlots(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Len(t, days[0].Slots, 15)

	assert.Equal(t, 1, booked.calls)
	assert.True(t, booked.lastWindow.Start.Equal(monday(0, 0)))
	assert.True(t, booked.lastWindow.End.Equal(monday(0, 0).AddDate(0, 0, 7)))
}

func TestSlotService_NoAvailabilitySkipsAppointmentLookup(t *testing.T) {
	doctorID := uuid.New()
	booked := &stubBooked{}
	svc := newTestService(doctorID, nil, booked)

	days, err := svc.GetAvailableSlots(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, days, 7)
	for _, d := range days {
		assert.Empty(t, d.Slots)
	}
	assert.Zero(t, booked.calls)
}

func TestSlotService_UnknownDoctor(t *testing.T) {
	svc := newTestService(uuid.New(), nil, &stubBooked{})
	_, err := svc.GetAvailableSlots(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrDoctorUnavailable)
}

func TestSlotService_StoreFailureIsWrapped(t *testing.T) {
	doctorID := uuid.New()
	svc := NewSlotService(
		stubDoctors{bookable: map[uuid.UUID]bool{doctorID: true}},
		stubAvailability{err: errors.New("connection reset")},
		&stubBooked{},
		NewGenerator(time.UTC),
		FixedClock{T: monday(8, 0)},
		nil,
		nil,
	)
	_, err := svc.GetAvailableSlots(context.Background(), doctorID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load availability")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func serveSlots(h *Handler, doctorID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/doctors/{doctorID}/slots", h.GetAvailableSlots)
	req := httptest.NewRequest(http.MethodGet, "/doctors/"+doctorID+"/slots", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetAvailableSlots(t *testing.T) {
	doctorID := uuid.New()
	h := NewHandler(newTestService(doctorID, mondayNineToFive(doctorID), &stubBooked{}), nil)

	rec := serveSlots(h, doctorID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body SlotsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, doctorID.String(), body.DoctorID)
	require.Len(t, body.Days, 7)
	assert.Len(t, body.Days[0].Slots, 16)
	assert.Equal(t, "2026-10-19", body.Days[0].Date)
}

func TestHandler_EmptyDaysSerializeAsArrays(t *testing.T) {
	doctorID := uuid.New()
	h := NewHandler(newTestService(doctorID, nil, &stubBooked{}), nil)

	rec := serveSlots(h, doctorID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slots":[]`)
	assert.NotContains(t, rec.Body.String(), `"slots":null`)
}

func TestHandler_Errors(t *testing.T) {
	h := NewHandler(newTestService(uuid.New(), nil, &stubBooked{}), nil)

	rec := serveSlots(h, "not-a-uuid")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serveSlots(h, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body apperr.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "DoctorUnavailable", body.Error)
}
