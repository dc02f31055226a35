// Package apperr carries the booking error taxonomy shared by the scheduling
// core and its HTTP surface. Every failure has a stable machine-readable code
// plus a human message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind groups codes by how callers are expected to react.
type Kind string

const (
	// KindConfiguration is bad availability data; the doctor must fix it.
	KindConfiguration Kind = "configuration"
	// KindCapacity means the patient must top up credits.
	KindCapacity Kind = "capacity"
	// KindConflict means the chosen slot went stale; the user re-picks.
	KindConflict Kind = "conflict"
	// KindDependency is an external collaborator failure; safe to retry.
	KindDependency Kind = "dependency"
	// KindAuthorization is a caller acting on something that is not theirs.
	KindAuthorization Kind = "authorization"
	// KindState is a request that does not fit the appointment lifecycle.
	KindState      Kind = "state"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error is a classified failure. Two errors match under errors.Is when their
// codes match, so callers compare against the exported sentinels.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New builds a sentinel-style error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports code equality.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy carrying a more specific message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy that records cause as the underlying error.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

var (
	ErrDoctorUnavailable         = New(KindNotFound, "DoctorUnavailable", "doctor not found or not verified")
	ErrInsufficientCredits       = New(KindCapacity, "InsufficientCredits", "insufficient credits to book an appointment")
	ErrSlotConflict              = New(KindConflict, "SlotConflict", "this time slot is already booked, please pick another slot")
	ErrSessionProvisioningFailed = New(KindDependency, "SessionProvisioningFailed", "failed to create video session")
	ErrNotAuthorized             = New(KindAuthorization, "NotAuthorized", "you are not authorized to join this call")
	ErrAppointmentNotJoinable    = New(KindState, "AppointmentNotJoinable", "this appointment is not currently joinable")
	ErrTooEarlyToJoin            = New(KindState, "TooEarlyToJoin", "the call will be available 30 minutes before the scheduled time")
	ErrInvalidTransition         = New(KindState, "InvalidTransition", "appointment status cannot change from its current state")
	ErrInvalidAvailability       = New(KindConfiguration, "InvalidAvailability", "weekly availability is malformed")
	ErrAppointmentNotFound       = New(KindNotFound, "AppointmentNotFound", "appointment not found")
	ErrAvailabilityNotFound      = New(KindNotFound, "AvailabilityNotFound", "availability not found")
	ErrValidation                = New(KindValidation, "ValidationFailed", "request validation failed")
)

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code for err.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return "InternalError"
}

// Retryable reports whether a caller may transparently retry.
func Retryable(err error) bool {
	return KindOf(err) == KindDependency
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConfiguration:
		return http.StatusUnprocessableEntity
	case KindCapacity:
		return http.StatusPaymentRequired
	case KindConflict, KindState:
		return http.StatusConflict
	case KindDependency:
		return http.StatusServiceUnavailable
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
