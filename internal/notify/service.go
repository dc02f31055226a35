package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/wolfman30/telehealth-scheduling/internal/events"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// ConsumerBookingEmail identifies the confirmation email consumer in processed_events.
const ConsumerBookingEmail = "notify.booking-email"

// BookingNotifier emails both participants when an appointment is booked.
// It implements events.DeliveryHandler.
type BookingNotifier struct {
	email  EmailSender
	loc    *time.Location
	logger *logging.Logger
}

func NewBookingNotifier(email EmailSender, loc *time.Location, logger *logging.Logger) *BookingNotifier {
	if email == nil {
		panic("notify: email sender required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, loc: loc, logger: logger}
}

func (n *BookingNotifier) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if entry.Type != events.TypeAppointmentBookedV1 {
		return nil
	}
	env, err := entry.Envelope()
	if err != nil {
		return fmt.Errorf("notify: envelope: %w", err)
	}
	var evt events.AppointmentBookedV1
	if err := env.Decode(&evt); err != nil {
		return fmt.Errorf("notify: decode booked event: %w", err)
	}
	return n.NotifyAppointmentBooked(ctx, evt)
}

// NotifyAppointmentBooked sends the patient a confirmation and the doctor a
// heads-up. Participants without an email address are skipped.
func (n *BookingNotifier) NotifyAppointmentBooked(ctx context.Context, evt events.AppointmentBookedV1) error {
	when := evt.StartTime.In(n.loc).Format("Monday, January 2 at 3:04 PM MST")

	var msgs []EmailMessage
	if evt.PatientEmail != "" {
		msgs = append(msgs, EmailMessage{
			To:      evt.PatientEmail,
			ToName:  evt.PatientName,
			Subject: fmt.Sprintf("Your video consultation with Dr. %s is confirmed", evt.DoctorName),
			Body: fmt.Sprintf(`Hi %s,

Your video consultation with Dr. %s is booked for %s.
%d credits were deducted from your balance.

You can join the call from 30 minutes before the start time.`,
				evt.PatientName, evt.DoctorName, when, evt.CreditsCharged),
			HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Your video consultation with <strong>Dr. %s</strong> is booked for <strong>%s</strong>.</p>
<p>%d credits were deducted from your balance.</p>
<p>You can join the call from 30 minutes before the start time.</p>`,
				html.EscapeString(evt.PatientName), html.EscapeString(evt.DoctorName), when, evt.CreditsCharged),
		})
	}
	if evt.DoctorEmail != "" {
		msgs = append(msgs, EmailMessage{
			To:      evt.DoctorEmail,
			ToName:  evt.DoctorName,
			Subject: fmt.Sprintf("New consultation: %s on %s", evt.PatientName, when),
			Body: fmt.Sprintf(`%s booked a video consultation with you for %s.

Appointment: %s`, evt.PatientName, when, evt.AppointmentID),
		})
	}

	var errs []error
	for _, msg := range msgs {
		if err := n.email.Send(ctx, msg); err != nil {
			n.logger.Error("notify: booking email failed", "error", err, "to", msg.To, "appointment_id", evt.AppointmentID)
			errs = append(errs, err)
			continue
		}
		n.logger.Info("notify: booking email sent", "to", msg.To, "appointment_id", evt.AppointmentID)
	}
	return errors.Join(errs...)
}
