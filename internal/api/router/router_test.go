package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-scheduling/internal/appointments"
	"github.com/wolfman30/telehealth-scheduling/internal/credits"
	"github.com/wolfman30/telehealth-scheduling/internal/directory"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	httpmiddleware "github.com/wolfman30/telehealth-scheduling/internal/http/middleware"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/internal/video"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

const testSecret = "router-secret"

type testEnv struct {
	router  http.Handler
	doctor  directory.User
	patient directory.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := logging.New("error")
	doctor := directory.User{ID: uuid.New(), FirstName: "Grace", LastName: "Hopper", Role: identity.RoleDoctor, VerificationStatus: directory.VerificationVerified}
	patient := directory.User{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", Role: identity.RolePatient}

	users := directory.NewMemoryUsers(doctor, patient)
	dir := directory.New(users)
	availability := directory.NewMemoryAvailability()
	ledger := credits.NewMemoryLedger()
	ledger.Open(patient.ID, 10)
	ledger.Open(doctor.ID, 0)
	repo := appointments.NewMemoryRepository()
	clock := scheduling.SystemClock{}

	booker := appointments.NewBooker(repo, appointments.NewMemoryTxManager(repo, ledger, events.NewMemoryOutbox()),
		ledger, dir, video.NewFake(), clock, nil, logger)
	slots := scheduling.NewSlotService(dir, availability, booker, scheduling.NewGenerator(time.UTC), clock, nil, logger)

	r := New(&Config{
		Logger:              logger,
		SlotsHandler:        scheduling.NewHandler(slots, logger),
		AvailabilityHandler: directory.NewHandler(directory.NewAvailabilityService(dir, availability, logger), logger),
		AppointmentsHandler: appointments.NewHandler(booker, logger),
		MetricsHandler:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		AuthSecret:          testSecret,
	})
	return testEnv{router: r, doctor: doctor, patient: patient}
}

func bearer(t *testing.T, user directory.User) string {
	t.Helper()
	claims := httpmiddleware.CallerClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (e testEnv) do(t *testing.T, method, path string, user *directory.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req.Header.Set("Authorization", bearer(t, *user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])

	rec = env.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/doctors/"+env.doctor.ID.String()+"/slots", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterSlotsAndBooking(t *testing.T) {
	env := newTestEnv(t)

	for day := 0; day < 7; day++ {
		rec := env.do(t, http.MethodPut, "/doctors/me/availability", &env.doctor, map[string]any{
			"day_of_week": day, "start_time": "00:00", "end_time": "23:30",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/doctors/"+env.doctor.ID.String()+"/slots", &env.patient, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var slots scheduling.SlotsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&slots))
	require.Len(t, slots.Days, 7)

	var pick *scheduling.Slot
	for _, d := range slots.Days[1:] {
		if len(d.Slots) > 0 {
			pick = &d.Slots[0]
			break
		}
	}
	require.NotNil(t, pick)

	rec = env.do(t, http.MethodPost, "/appointments", &env.patient, appointments.BookRequestBody{
		DoctorID: env.doctor.ID.String(), StartTime: pick.StartTime, EndTime: pick.EndTime,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/appointments", &env.patient, appointments.BookRequestBody{
		DoctorID: env.doctor.ID.String(), StartTime: pick.StartTime, EndTime: pick.EndTime,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/doctors/me/appointments", &env.doctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page appointments.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)
}

func TestRouterRoleGuards(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", &env.doctor, appointments.BookRequestBody{DoctorID: env.doctor.ID.String()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/doctors/me/availability", &env.patient, map[string]any{"day_of_week": 1, "start_time": "09:00", "end_time": "10:00"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/doctors/me/appointments", &env.patient, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/appointments/"+uuid.NewString()+"/complete", &env.patient, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthHandlerReportsDegradedDependency(t *testing.T) {
	h := NewHealthHandler().
		WithCheck("postgres", PingFunc(func(context.Context) error { return nil })).
		WithCheck("redis", PingFunc(func(context.Context) error { return errors.New("down") })).
		WithCheck("ignored", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "ok", resp["postgres"])
	assert.Equal(t, "unavailable", resp["redis"])
	assert.NotContains(t, resp, "ignored")
}
