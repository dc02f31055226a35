// Package appointments books consultations, gates access to their video
// sessions and moves them through their lifecycle.
package appointments

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

const (
	maxDescriptionLen = 500
	maxReasonLen      = 500
	maxClinicalLen    = 1000
)

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", apperr.ErrValidation.WithMessage(fmt.Sprintf("unknown status %q", raw))
	}
}

// CanTransition reports whether from may move to to. Only scheduled
// appointments change state, and only to a terminal one.
func CanTransition(from, to Status) bool {
	return from == StatusScheduled && (to == StatusCompleted || to == StatusCancelled)
}

// Appointment is a booked consultation between a doctor and a patient.
type Appointment struct {
	ID                uuid.UUID `json:"id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Status            Status    `json:"status"`
	Description       string    `json:"description,omitempty"`
	VideoSessionID    string    `json:"video_session_id,omitempty"`
	VideoSessionToken string    `json:"-"`
	CancelReason      string    `json:"cancel_reason,omitempty"`
	Diagnosis         string    `json:"diagnosis,omitempty"`
	Prescription      string    `json:"prescription,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Interval is the appointment's half-open time span.
func (a Appointment) Interval() scheduling.Interval {
	return scheduling.Interval{Start: a.StartTime, End: a.EndTime}
}

// Participant reports whether userID is the doctor or the patient.
func (a Appointment) Participant(userID uuid.UUID) bool {
	return userID != uuid.Nil && (userID == a.DoctorID || userID == a.PatientID)
}

// BookRequest asks for a span of a doctor's time.
type BookRequest struct {
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Description string
}

func (r BookRequest) validate() error {
	switch {
	case r.DoctorID == uuid.Nil:
		return apperr.ErrValidation.WithMessage("doctor id is required")
	case r.PatientID == uuid.Nil:
		return apperr.ErrValidation.WithMessage("patient id is required")
	case r.DoctorID == r.PatientID:
		return apperr.ErrValidation.WithMessage("doctor and patient must differ")
	case r.StartTime.IsZero() || r.EndTime.IsZero():
		return apperr.ErrValidation.WithMessage("start and end time are required")
	case !r.StartTime.Before(r.EndTime):
		return apperr.ErrValidation.WithMessage("end time must be after start time")
	case utf8.RuneCountInString(r.Description) > maxDescriptionLen:
		return apperr.ErrValidation.WithMessage(fmt.Sprintf("description cannot exceed %d characters", maxDescriptionLen))
	}
	return nil
}

// CompletionNotes are recorded by the doctor when closing an appointment.
type CompletionNotes struct {
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
}

func (n CompletionNotes) validate() error {
	fields := []struct{ name, value string }{
		{"diagnosis", n.Diagnosis},
		{"prescription", n.Prescription},
		{"notes", n.Notes},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > maxClinicalLen {
			return apperr.ErrValidation.WithMessage(fmt.Sprintf("%s cannot exceed %d characters", f.name, maxClinicalLen))
		}
	}
	return nil
}

// JoinToken grants a participant access to the appointment's video session.
type JoinToken struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	SessionID     string    `json:"session_id"`
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Page is one page of a doctor's appointments.
type Page struct {
	Appointments []Appointment `json:"appointments"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	TotalPages   int           `json:"total_pages"`
}
