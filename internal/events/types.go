package events

import "time"

const (
	TypeAppointmentBookedV1    = "appointment.booked.v1"
	TypeAppointmentCancelledV1 = "appointment.cancelled.v1"
	TypeAppointmentCompletedV1 = "appointment.completed.v1"
)

// AppointmentAggregate is the aggregate key for appointment events.
func AppointmentAggregate(appointmentID string) string {
	return "appointment:" + appointmentID
}

type AppointmentBookedV1 struct {
	AppointmentID  string    `json:"appointment_id"`
	DoctorID       string    `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	DoctorEmail    string    `json:"doctor_email,omitempty"`
	PatientID      string    `json:"patient_id"`
	PatientName    string    `json:"patient_name"`
	PatientEmail   string    `json:"patient_email,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	VideoSessionID string    `json:"video_session_id"`
	CreditsCharged int       `json:"credits_charged"`
	BookedAt       time.Time `json:"booked_at"`
}

func (AppointmentBookedV1) EventType() string { return TypeAppointmentBookedV1 }

type AppointmentCancelledV1 struct {
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	CancelledBy   string    `json:"cancelled_by"`
	Reason        string    `json:"reason,omitempty"`
	StartTime     time.Time `json:"start_time"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

func (AppointmentCancelledV1) EventType() string { return TypeAppointmentCancelledV1 }

type AppointmentCompletedV1 struct {
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	CompletedAt   time.Time `json:"completed_at"`
}

func (AppointmentCompletedV1) EventType() string { return TypeAppointmentCompletedV1 }
