package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("appointments: book: %w", ErrSlotConflict.WithMessage("slot 10:00 taken"))

	assert.True(t, errors.Is(err, ErrSlotConflict))
	assert.False(t, errors.Is(err, ErrInsufficientCredits))
	assert.Equal(t, "SlotConflict", CodeOf(err))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := ErrSessionProvisioningFailed.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrSessionProvisioningFailed)
	assert.True(t, Retryable(err))
	assert.Nil(t, ErrSessionProvisioningFailed.Err, "sentinel must not be mutated")
}

func TestUnclassifiedErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "InternalError", CodeOf(err))
	assert.False(t, Retryable(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrDoctorUnavailable, http.StatusNotFound},
		{ErrInsufficientCredits, http.StatusPaymentRequired},
		{ErrSlotConflict, http.StatusConflict},
		{ErrSessionProvisioningFailed, http.StatusServiceUnavailable},
		{ErrNotAuthorized, http.StatusForbidden},
		{ErrTooEarlyToJoin, http.StatusConflict},
		{ErrInvalidAvailability, http.StatusUnprocessableEntity},
		{ErrValidation, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(CodeOf(tt.err), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
