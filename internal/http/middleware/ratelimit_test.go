package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/telehealth-scheduling/internal/identity"
)

func TestRateLimiterBurstAndRefill(t *testing.T) {
	current := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return current }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "keys are independent")

	current = current.Add(time.Second)
	assert.True(t, rl.Allow("a"), "one token refilled")
	assert.False(t, rl.Allow("a"))

	assert.Equal(t, 2, rl.Evict(current.Add(time.Minute)))
}

func TestRateKeyPrefersCaller(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.1")
	assert.Equal(t, "ip:10.0.0.1", rateKey(req))

	id := uuid.New()
	req = req.WithContext(identity.WithCaller(req.Context(), identity.Caller{UserID: id, Role: identity.RolePatient}))
	assert.Equal(t, "user:"+id.String(), rateKey(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
